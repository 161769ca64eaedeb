// Package main is the entry point for bizadmin, a metadata-driven business
// admin served over an existing REST backend.
//
//	@title			Bizadmin - Business Admin
//	@version		1.0
//	@description	Metadata-driven admin over an existing REST backend. Read-only JSON endpoints for health, version and the module catalog.
//
//	@BasePath		/
package main

import (
	"os"

	"github.com/joho/godotenv"
)

func main() {
	// A missing .env is not an error; variables may come from the shell.
	_ = godotenv.Load()

	registerModules(os.Args[1:])
	Execute()
}
