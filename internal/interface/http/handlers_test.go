package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/oksasatya/artesanato/internal/application"
	"github.com/oksasatya/artesanato/internal/domain/entity"
	repo "github.com/oksasatya/artesanato/internal/domain/repository"
	"github.com/oksasatya/artesanato/internal/interface/middleware"
	"github.com/oksasatya/artesanato/pkg/helpers"
	"github.com/oksasatya/artesanato/pkg/validation"
)

func init() {
	gin.SetMode(gin.TestMode)
	validation.Init()
	helpers.PasswordCost = bcrypt.MinCost
}

type memUsers struct {
	mu   sync.Mutex
	rows map[string]entity.User
}

func (r *memUsers) Create(_ context.Context, u *entity.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, x := range r.rows {
		if x.Email == u.Email {
			return repo.ErrDuplicateEmail
		}
	}
	u.ID = uuid.NewString()
	u.CreatedAt, u.UpdatedAt = time.Now(), time.Now()
	r.rows[u.ID] = *u
	return nil
}

func (r *memUsers) GetByID(_ context.Context, id string) (*entity.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if u, ok := r.rows[id]; ok {
		return &u, nil
	}
	return nil, nil
}

func (r *memUsers) GetByEmail(_ context.Context, email string) (*entity.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.rows {
		if u.Email == email {
			return &u, nil
		}
	}
	return nil, nil
}

func (r *memUsers) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	u, err := r.GetByEmail(ctx, email)
	return u != nil, err
}

type memItems struct {
	mu   sync.Mutex
	rows map[string]entity.Item
}

func (r *memItems) Create(_ context.Context, it *entity.Item) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	it.ID = uuid.NewString()
	r.rows[it.ID] = *it
	return nil
}

func (r *memItems) Update(_ context.Context, it *entity.Item) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.rows[it.ID]; !ok {
		return repo.ErrNotFound
	}
	r.rows[it.ID] = *it
	return nil
}

func (r *memItems) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.rows[id]; !ok {
		return repo.ErrNotFound
	}
	delete(r.rows, id)
	return nil
}

func (r *memItems) FindByID(_ context.Context, id string) (*entity.Item, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if it, ok := r.rows[id]; ok {
		return &it, nil
	}
	return nil, nil
}

func (r *memItems) Search(_ context.Context, f repo.ItemFilter) ([]entity.Item, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []entity.Item{}
	for _, it := range r.rows {
		if it.UserID != f.UserID {
			continue
		}
		if f.Description != "" && !strings.Contains(strings.ToLower(it.Description), strings.ToLower(f.Description)) {
			continue
		}
		if f.Status != "" && it.Status != f.Status {
			continue
		}
		out = append(out, it)
	}
	return out, nil
}

func (r *memItems) UpdatePhoto(_ context.Context, id, url string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	it, ok := r.rows[id]
	if !ok {
		return repo.ErrNotFound
	}
	it.PhotoURL = url
	r.rows[id] = it
	return nil
}

func (r *memItems) SumAmount(_ context.Context, userID string, kind entity.Kind, status entity.Status) (decimal.NullDecimal, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var sum decimal.NullDecimal
	for _, it := range r.rows {
		if it.UserID == userID && it.Kind == kind && it.Status == status {
			sum.Decimal, sum.Valid = sum.Decimal.Add(it.Amount), true
		}
	}
	return sum, nil
}

type memStore struct{}

func (memStore) Upload(_ context.Context, objectPath, _ string, r io.Reader) (string, error) {
	_, err := io.Copy(io.Discard, r)
	return "https://cdn.test/" + objectPath, err
}

type apiEnv struct {
	engine *gin.Engine
	users  *memUsers
	items  *memItems
	token  string
	owner  *entity.User
}

type envelope struct {
	Status  int             `json:"status"`
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func newAPI(t *testing.T) *apiEnv {
	t.Helper()
	users := &memUsers{rows: map[string]entity.User{}}
	items := &memItems{rows: map[string]entity.Item{}}
	jwt := helpers.NewJWTManager("access", "refresh", time.Minute, time.Hour)
	userSvc := application.NewUserService(users, jwt, nil, nil, nil, time.Hour, application.Branding{})
	itemSvc := application.NewItemService(items, nil, memStore{}, nil)
	uh := NewUserHandler(userSvc, itemSvc, nil, "", false)
	ih := NewItemHandler(itemSvc, userSvc, nil)

	r := gin.New()
	r.Use(middleware.RequestIDMiddleware())
	api := r.Group("/api")
	api.POST("/usuarios", uh.Register)
	api.POST("/usuarios/autenticar", uh.Authenticate)
	api.POST("/usuarios/refresh", uh.Refresh)
	auth := api.Group("/", middleware.Auth(nil, jwt))
	auth.POST("/usuarios/logout", uh.Logout)
	auth.GET("/usuarios/:id", uh.Get)
	auth.GET("/usuarios/:id/saldo", uh.Balance)
	auth.GET("/pecas", ih.Search)
	auth.GET("/pecas/busca", ih.TextSearch)
	auth.POST("/pecas", ih.Create)
	auth.GET("/pecas/:id", ih.Get)
	auth.PUT("/pecas/:id", ih.Update)
	auth.PUT("/pecas/:id/atualiza-status", ih.UpdateStatus)
	auth.DELETE("/pecas/:id", ih.Delete)
	auth.POST("/pecas/:id/foto", ih.UploadPhoto)

	env := &apiEnv{engine: r, users: users, items: items}
	w := env.do(t, http.MethodPost, "/api/usuarios", map[string]any{
		"nome": "Ana", "email": "ana@example.com", "cpf": "529.982.247-25", "celular": "11999999999", "senha": "correct-horse",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	env.owner, _ = users.GetByEmail(context.Background(), "ana@example.com")

	w = env.do(t, http.MethodPost, "/api/usuarios/autenticar", map[string]any{"email": "ana@example.com", "senha": "correct-horse"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var tok tokenResponse
	decode(t, w, &tok)
	env.token = tok.Token
	return env
}

// signUp registers and logs in another user, returning their id and token.
func (e *apiEnv) signUp(t *testing.T, name, email, cpf string) (string, string) {
	t.Helper()
	saved := e.token
	e.token = ""
	defer func() { e.token = saved }()

	w := e.do(t, http.MethodPost, "/api/usuarios", map[string]any{
		"nome": name, "email": email, "cpf": cpf, "celular": "11988887777", "senha": "battery-staple",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var u userResponse
	decode(t, w, &u)

	w = e.do(t, http.MethodPost, "/api/usuarios/autenticar", map[string]any{"email": email, "senha": "battery-staple"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var tok tokenResponse
	decode(t, w, &tok)
	return u.ID, tok.Token
}

func (e *apiEnv) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		rd = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, rd)
	req.Header.Set("Content-Type", "application/json")
	if e.token != "" {
		req.Header.Set("Authorization", "Bearer "+e.token)
	}
	w := httptest.NewRecorder()
	e.engine.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, data any) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	if data != nil {
		require.NoError(t, json.Unmarshal(env.Data, data))
	}
	return env
}

func (e *apiEnv) createItem(t *testing.T, body map[string]any) itemResponse {
	t.Helper()
	w := e.do(t, http.MethodPost, "/api/pecas", body)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var out itemResponse
	decode(t, w, &out)
	return out
}

func (e *apiEnv) salary() map[string]any {
	return map[string]any{"descricao": "Salary", "mes": 1, "ano": 2020, "valor": 100, "tipo": "CREDIT", "usuario": e.owner.ID}
}

func TestRegisterAndAuthenticate(t *testing.T) {
	e := newAPI(t)
	assert.NotEmpty(t, e.token)

	w := e.do(t, http.MethodPost, "/api/usuarios", map[string]any{
		"nome": "Other", "email": "ana@example.com", "cpf": "52998224725", "celular": "11999999999", "senha": "whatever1",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "email already registered", decode(t, w, nil).Message)

	w = e.do(t, http.MethodPost, "/api/usuarios/autenticar", map[string]any{"email": "ana@example.com", "senha": "wrong-pass"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "invalid password", decode(t, w, nil).Message)

	w = e.do(t, http.MethodPost, "/api/usuarios/autenticar", map[string]any{"email": "nobody@example.com", "senha": "wrong-pass"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "user not found", decode(t, w, nil).Message)
}

func TestRegisterValidatesPayload(t *testing.T) {
	e := newAPI(t)
	w := e.do(t, http.MethodPost, "/api/usuarios", map[string]any{"nome": "X", "email": "not-an-email", "cpf": "11111111111", "celular": "1", "senha": "short"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	var details map[string]string
	var env struct {
		Error map[string]string `json:"error"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	details = env.Error
	assert.Equal(t, "must be a valid email", details["email"])
	assert.Equal(t, "must be a valid CPF", details["cpf"])
	assert.Contains(t, details, "senha")
}

func TestRegisterOmitsPassword(t *testing.T) {
	e := newAPI(t)
	w := e.do(t, http.MethodPost, "/api/usuarios", map[string]any{
		"nome": "Bia", "email": "bia@example.com", "cpf": "52998224725", "celular": "11988888888", "senha": "correct-horse",
	})
	require.Equal(t, http.StatusCreated, w.Code)
	assert.NotContains(t, w.Body.String(), "senha")
	assert.NotContains(t, w.Body.String(), "correct-horse")
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	e := newAPI(t)
	e.token = ""
	w := e.do(t, http.MethodGet, "/api/pecas?usuario="+uuid.NewString(), nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestCreateItemForcesPending(t *testing.T) {
	e := newAPI(t)
	body := e.salary()
	body["status"] = "SETTLED"

	out := e.createItem(t, body)
	assert.NotEmpty(t, out.ID)
	assert.Equal(t, entity.StatusPending, out.Status)
	assert.True(t, out.Amount.Equal(decimal.NewFromInt(100)))
}

func TestCreateItemErrors(t *testing.T) {
	e := newAPI(t)
	cases := []struct {
		name  string
		patch map[string]any
		msg   string
	}{
		{"blank description", map[string]any{"descricao": " "}, "invalid description."},
		{"bad month", map[string]any{"mes": 13}, "invalid month."},
		{"bad year", map[string]any{"ano": 20}, "invalid year."},
		{"no owner", map[string]any{"usuario": ""}, "user required."},
		{"unknown owner", map[string]any{"usuario": uuid.NewString()}, "user not found"},
		{"zero amount", map[string]any{"valor": "0"}, "invalid amount."},
		{"sub-cent amount", map[string]any{"valor": "0.001"}, "invalid amount."},
		{"three decimal places", map[string]any{"valor": "1.234"}, "invalid amount."},
		{"amount past column range", map[string]any{"valor": "100000000000000"}, "invalid amount."},
		{"no kind", map[string]any{"tipo": ""}, "transaction kind required."},
		{"bad kind", map[string]any{"tipo": "PIX"}, "invalid transaction kind"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			body := e.salary()
			for k, v := range tc.patch {
				body[k] = v
			}
			w := e.do(t, http.MethodPost, "/api/pecas", body)
			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Equal(t, tc.msg, decode(t, w, nil).Message)
		})
	}
	assert.Empty(t, e.items.rows)
}

func TestGetUpdateDeleteItem(t *testing.T) {
	e := newAPI(t)
	created := e.createItem(t, e.salary())

	w := e.do(t, http.MethodGet, "/api/pecas/"+created.ID, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	body := e.salary()
	body["descricao"] = "Vaso"
	body["valor"] = "42.50"
	w = e.do(t, http.MethodPut, "/api/pecas/"+created.ID, body)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var updated itemResponse
	decode(t, w, &updated)
	assert.Equal(t, "Vaso", updated.Description)
	assert.Equal(t, entity.StatusPending, updated.Status)
	assert.Equal(t, "42.5", updated.Amount.String())

	for _, v := range []any{-1, "1.234"} {
		body["valor"] = v
		w = e.do(t, http.MethodPut, "/api/pecas/"+created.ID, body)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "invalid amount.", decode(t, w, nil).Message)
	}
	w = e.do(t, http.MethodGet, "/api/pecas/"+created.ID, nil)
	decode(t, w, &updated)
	assert.Equal(t, "42.5", updated.Amount.String())

	w = e.do(t, http.MethodDelete, "/api/pecas/"+created.ID, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	for _, m := range []string{http.MethodGet, http.MethodDelete} {
		w = e.do(t, m, "/api/pecas/"+created.ID, nil)
		assert.Equal(t, http.StatusNotFound, w.Code, m)
	}
	w = e.do(t, http.MethodPut, "/api/pecas/"+uuid.NewString(), e.salary())
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestUpdateStatus(t *testing.T) {
	e := newAPI(t)
	created := e.createItem(t, e.salary())
	path := "/api/pecas/" + created.ID + "/atualiza-status"

	w := e.do(t, http.MethodPut, path, map[string]any{"status": "BOGUS"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "invalid status value", decode(t, w, nil).Message)

	w = e.do(t, http.MethodPut, path, map[string]any{"status": "settled"})
	require.Equal(t, http.StatusOK, w.Code)
	var out itemResponse
	decode(t, w, &out)
	assert.Equal(t, entity.StatusSettled, out.Status)

	w = e.do(t, http.MethodPut, "/api/pecas/"+uuid.NewString()+"/atualiza-status", map[string]any{"status": "SETTLED"})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestSearchRequiresKnownOwner(t *testing.T) {
	e := newAPI(t)
	e.createItem(t, e.salary())
	other := e.salary()
	other["descricao"] = "Tapete"
	e.createItem(t, other)

	w := e.do(t, http.MethodGet, "/api/pecas", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "user not found", decode(t, w, nil).Message)

	w = e.do(t, http.MethodGet, "/api/pecas?usuario="+uuid.NewString(), nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = e.do(t, http.MethodGet, "/api/pecas?descricao=sal&usuario="+e.owner.ID, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var list []itemResponse
	decode(t, w, &list)
	require.Len(t, list, 1)
	assert.Equal(t, "Salary", list[0].Description)

	w = e.do(t, http.MethodGet, "/api/pecas?status=nope&usuario="+e.owner.ID, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "invalid status value", decode(t, w, nil).Message)
}

func TestBalance(t *testing.T) {
	e := newAPI(t)
	credit := e.createItem(t, e.salary())
	debit := e.salary()
	debit["tipo"] = "DEBIT"
	debit["valor"] = 50
	d := e.createItem(t, debit)
	e.createItem(t, e.salary())

	for _, id := range []string{credit.ID, d.ID} {
		w := e.do(t, http.MethodPut, "/api/pecas/"+id+"/atualiza-status", map[string]any{"status": "SETTLED"})
		require.Equal(t, http.StatusOK, w.Code)
	}

	w := e.do(t, http.MethodGet, "/api/usuarios/"+e.owner.ID+"/saldo", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var bal balanceResponse
	decode(t, w, &bal)
	assert.True(t, bal.Balance.Equal(decimal.NewFromInt(50)), bal.Balance.String())

	w = e.do(t, http.MethodGet, "/api/usuarios/"+uuid.NewString()+"/saldo", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestGetUser(t *testing.T) {
	e := newAPI(t)
	w := e.do(t, http.MethodGet, "/api/usuarios/"+e.owner.ID, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var u userResponse
	decode(t, w, &u)
	assert.Equal(t, "Ana", u.Name)
	assert.Equal(t, "529.982.247-25", u.TaxID)

	w = e.do(t, http.MethodGet, "/api/usuarios/42", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestUploadPhoto(t *testing.T) {
	e := newAPI(t)
	created := e.createItem(t, e.salary())

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	hdr := make(textproto.MIMEHeader)
	hdr.Set("Content-Disposition", `form-data; name="foto"; filename="vaso.PNG"`)
	hdr.Set("Content-Type", "image/png")
	part, err := mw.CreatePart(hdr)
	require.NoError(t, err)
	_, _ = part.Write([]byte("\x89PNG fake"))
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/pecas/"+created.ID+"/foto", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+e.token)
	w := httptest.NewRecorder()
	e.engine.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	stored := e.items.rows[created.ID]
	assert.True(t, strings.HasPrefix(stored.PhotoURL, "https://cdn.test/pecas/"+e.owner.ID+"/"+created.ID+"/"))
	assert.True(t, strings.HasSuffix(stored.PhotoURL, ".png"))
}

func TestTextSearchWithoutIndexIsEmpty(t *testing.T) {
	e := newAPI(t)
	w := e.do(t, http.MethodGet, "/api/pecas/busca?q=vaso", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var list []itemResponse
	decode(t, w, &list)
	assert.Empty(t, list)

	w = e.do(t, http.MethodGet, "/api/pecas/busca", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestOtherUsersDataIsForbidden(t *testing.T) {
	e := newAPI(t)
	item := e.createItem(t, e.salary())
	bobID, bobToken := e.signUp(t, "Bob", "bob@example.com", "111.444.777-35")

	ownerToken := e.token
	e.token = bobToken

	forbidden := []struct {
		method, path string
		body         any
	}{
		{http.MethodGet, "/api/pecas?usuario=" + e.owner.ID, nil},
		{http.MethodGet, "/api/pecas/" + item.ID, nil},
		{http.MethodPut, "/api/pecas/" + item.ID, e.salary()},
		{http.MethodPut, "/api/pecas/" + item.ID + "/atualiza-status", map[string]any{"status": "SETTLED"}},
		{http.MethodDelete, "/api/pecas/" + item.ID, nil},
		{http.MethodPost, "/api/pecas", e.salary()},
		{http.MethodGet, "/api/usuarios/" + e.owner.ID, nil},
		{http.MethodGet, "/api/usuarios/" + e.owner.ID + "/saldo", nil},
	}
	for _, tc := range forbidden {
		w := e.do(t, tc.method, tc.path, tc.body)
		assert.Equal(t, http.StatusForbidden, w.Code, tc.method+" "+tc.path)
	}

	stored := e.items.rows[item.ID]
	assert.Equal(t, entity.StatusPending, stored.Status)
	assert.Len(t, e.items.rows, 1)

	w := e.do(t, http.MethodGet, "/api/usuarios/"+bobID+"/saldo", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	e.token = ownerToken
	w = e.do(t, http.MethodGet, "/api/pecas/"+item.ID, nil)
	assert.Equal(t, http.StatusOK, w.Code)
}
