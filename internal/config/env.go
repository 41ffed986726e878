package config

import "github.com/joho/godotenv"

// LoadEnv loads variables from a .env file in the working directory into the
// process environment. Variables that are already set are left alone.
func LoadEnv() error {
	return godotenv.Load()
}
