package migrations

import (
	activitymodel "github.com/goliatone/go-activity/activity"
	"github.com/goliatone/go-activity/company"
	"github.com/goliatone/go-activity/user"
	persistence "github.com/goliatone/go-persistence-bun"
)

func init() {
	RegisterModels()
}

// RegisterModels registers the bun models with go-persistence-bun so hosts
// that bootstrap through its client pick them up without extra wiring.
func RegisterModels() {
	persistence.RegisterModel((*company.Record)(nil))
	persistence.RegisterModel((*user.Record)(nil))
	persistence.RegisterModel((*activitymodel.Record)(nil))
}
