package telemetry

import (
	"fmt"

	"github.com/uptrace/opentelemetry-go-extra/otelgorm"
	"gorm.io/gorm"
)

// RegisterGormTracing adds otelgorm spans to every query. Query variables are left out.
func RegisterGormTracing(db *gorm.DB, dbName string) error {
	if err := db.Use(otelgorm.NewPlugin(otelgorm.WithDBName(dbName), otelgorm.WithoutQueryVariables())); err != nil {
		return fmt.Errorf("register otelgorm: %w", err)
	}
	return nil
}
