package router

import (
	"github.com/oksasatya/artesanato/internal/application"
	"github.com/oksasatya/artesanato/internal/container"
	"github.com/oksasatya/artesanato/internal/infrastructure/postgres"
	"github.com/oksasatya/artesanato/internal/infrastructure/search"
	handlers "github.com/oksasatya/artesanato/internal/interface/http"
	"github.com/oksasatya/artesanato/internal/router/modules"
)

type Services struct {
	Users *application.UserService
	Items *application.ItemService
}

// BuildServices wires repositories and optional infrastructure from the
// container. Disabled infrastructure is passed as a nil interface.
func BuildServices() Services {
	cfg := container.GetConfig()
	logger := container.GetLogger()
	pool := container.GetPGPool()

	var pub application.Publisher
	if p := container.GetRabbitPub(); p != nil {
		pub = p
	}
	var index application.ItemIndex
	if es := container.GetES(); es != nil {
		index = search.NewItemIndex(es, cfg.ESItemsIndex)
	}
	var photos application.ObjectStore
	if s := container.GetPhotoStore(); s != nil {
		photos = s
	}

	users := application.NewUserService(
		postgres.NewUserRepository(pool),
		container.GetJWT(),
		container.GetRedis(),
		pub,
		logger,
		cfg.SessionTTL,
		application.Branding{AppName: cfg.AppName, CompanyName: cfg.CompanyName, SupportURL: cfg.SupportURL},
	)
	items := application.NewItemService(postgres.NewItemRepository(pool), index, photos, logger)
	return Services{Users: users, Items: items}
}

// InitModules builds every feature module and adds it to the registry. Call
// once at startup, before RegisterAll.
func InitModules(r *Registry) {
	cfg := container.GetConfig()
	logger := container.GetLogger()
	rdb := container.GetRedis()
	jwt := container.GetJWT()
	svc := BuildServices()

	userHandler := handlers.NewUserHandler(svc.Users, svc.Items, logger, cfg.CookieDomain, cfg.CookieSecure)
	itemHandler := handlers.NewItemHandler(svc.Items, svc.Users, logger)

	r.Add(modules.NewUserModule(userHandler, jwt, rdb))
	r.Add(modules.NewItemModule(itemHandler, jwt, rdb))
	if cfg.DebugMetricsEnabled {
		r.Add(modules.NewDebugModule(rdb))
	}
}
