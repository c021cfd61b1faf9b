package migration

import (
	auditdomain "github.com/smallbiznis/propera/internal/audit/domain"
	billdomain "github.com/smallbiznis/propera/internal/bill/domain"
	"github.com/smallbiznis/propera/internal/config"
	"github.com/smallbiznis/propera/internal/notifier"
	paymentdomain "github.com/smallbiznis/propera/internal/payment/domain"
	propertydomain "github.com/smallbiznis/propera/internal/property/domain"
	"github.com/smallbiznis/propera/internal/seed"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

var Module = fx.Module("migrations",
	fx.Invoke(func(conn *gorm.DB, cfg config.Config) error {
		// The versioned SQL migrations target postgres. Other dialects
		// (sqlite in dev and tests) fall back to schema sync from the models.
		if conn.Dialector.Name() == "postgres" {
			sqlDB, err := conn.DB()
			if err != nil {
				return err
			}
			if err := RunMigrations(sqlDB); err != nil {
				return err
			}
		} else {
			if err := conn.AutoMigrate(
				&propertydomain.Property{},
				&propertydomain.Resident{},
				&propertydomain.Service{},
				&propertydomain.PropertyService{},
				&propertydomain.ResidentProperty{},
				&billdomain.Bill{},
				&paymentdomain.Payment{},
				&auditdomain.AuditLog{},
				&notifier.Rotation{},
			); err != nil {
				return err
			}
		}

		if cfg.SeedDemoData {
			return seed.EnsureDemoData(conn)
		}
		return nil
	}),
)
