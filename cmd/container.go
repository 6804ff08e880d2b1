// Root composition root. Owns infrastructure (DB) and composes the
// identity bounded context.
package main

import (
	"context"
	"fmt"

	"github.com/Abraxas-365/identity-core/pkg/config"
	"github.com/Abraxas-365/identity-core/pkg/identity/identitycontainer"
	"github.com/Abraxas-365/identity-core/pkg/logx"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

// Container holds shared infrastructure and the composed identity module.
type Container struct {
	Config *config.Config
	DB     *sqlx.DB

	Identity *identitycontainer.Container
}

func NewContainer(cfg *config.Config) *Container {
	logx.Info("initializing application container")

	c := &Container{Config: cfg}
	c.initInfrastructure()
	c.initModules()

	logx.Info("application container initialized")
	return c
}

func (c *Container) initInfrastructure() {
	dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Config.Database.Host,
		c.Config.Database.Port,
		c.Config.Database.User,
		c.Config.Database.Password,
		c.Config.Database.Name,
		c.Config.Database.SSLMode,
	)

	db, err := sqlx.Connect("postgres", dsn)
	if err != nil {
		logx.Fatalf("failed to connect to database: %v", err)
	}
	db.SetMaxOpenConns(c.Config.Database.MaxOpenConns)
	db.SetMaxIdleConns(c.Config.Database.MaxIdleConns)
	db.SetConnMaxLifetime(c.Config.Database.ConnMaxLifetime)
	c.DB = db
	logx.Info("  database connected")
}

func (c *Container) initModules() {
	c.Identity = identitycontainer.New(identitycontainer.Deps{
		DB:  c.DB,
		Cfg: c.Config,
	})
}

func (c *Container) StartBackgroundServices(ctx context.Context) {
	c.Identity.StartBackgroundServices(ctx, c.Config)
}

func (c *Container) Cleanup() {
	logx.Info("cleaning up resources")
	if c.DB != nil {
		if err := c.DB.Close(); err != nil {
			logx.Errorf("error closing database: %v", err)
		} else {
			logx.Info("  database connection closed")
		}
	}
	logx.Info("cleanup complete")
}
