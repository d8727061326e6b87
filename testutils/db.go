package testutils

import (
	"fmt"
	"os"
	"os/exec"
	"os/user"
)

// PrepareDBConnectionString builds a lib/pq connection string for tests,
// creating a throwaway local database called wantDBName unless POSTGRES_DB
// points at an existing one. POSTGRES_USER, POSTGRES_PASSWORD and
// POSTGRES_HOST override the defaults, which is how CI runs these tests.
func PrepareDBConnectionString(wantDBName string) string {
	pgUser := os.Getenv("POSTGRES_USER")
	if pgUser == "" {
		u, err := user.Current()
		if err != nil {
			fmt.Println("cannot get current user: ", err)
			os.Exit(2)
		}
		pgUser = u.Username
	}
	dbName := os.Getenv("POSTGRES_DB")
	if dbName == "" {
		dbName = recreateLocalDB(wantDBName)
	}
	connStr := fmt.Sprintf("user=%s dbname=%s sslmode=disable", pgUser, dbName)
	if password := os.Getenv("POSTGRES_PASSWORD"); password != "" {
		connStr += " password=" + password
	}
	if host := os.Getenv("POSTGRES_HOST"); host != "" {
		connStr += " host=" + host
	}
	return connStr
}

func recreateLocalDB(dbName string) string {
	fmt.Println("Note: tests require a postgres install accessible to the current user")
	// A failed drop just means the database didn't exist yet.
	exec.Command("dropdb", "-f", dbName).Run()
	createDB := exec.Command("createdb", dbName)
	createDB.Stdout = os.Stdout
	createDB.Stderr = os.Stderr
	if err := createDB.Run(); err != nil {
		fmt.Println("createdb failed: ", err)
		os.Exit(2)
	}
	return dbName
}
