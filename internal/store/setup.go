package store

import (
	"log"

	appdb "github.com/EmpoweredVote/collective-backend/internal/db"
)

func Init() {
	if err := Migrate(appdb.DB); err != nil {
		log.Fatal("Failed to migrate collective tables: ", err)
	}
}
