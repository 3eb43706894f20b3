package migrations

import (
	"io/fs"

	activity "github.com/goliatone/go-activity"
)

func init() {
	coreFS, err := fs.Sub(activity.GetMigrationsFS(), "data/sql/migrations")
	if err != nil {
		return
	}
	Register(coreFS)
}
