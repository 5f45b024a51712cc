package env

import (
	"fmt"
	"os"
	"os/user"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

func init() {
	// walk upward so tests running from package dirs still pick up the
	// repository .env
	paths := []string{
		".env",
		"../.env",
		"../../.env",
		"../../../.env",
	}
	for _, path := range paths {
		if err := godotenv.Load(path); err == nil {
			return
		}
	}
}

func String(key string, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func MustString(key string) string {
	value := os.Getenv(key)
	if value == "" {
		panic(fmt.Sprintf("environment variable %s is not set", key))
	}
	return value
}

func Int(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	i, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}
	return i
}

func Bool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value == "true"
}

func IsDev() bool {
	return os.Getenv("DEV") == "true"
}

func IsDebug() bool {
	return Bool("DEBUG", false)
}

// DirPath resolves a directory-valued variable against BASE_DIR.
// Absolute values are returned as-is.
func DirPath(key string, defaultValue string) string {
	dir := String(key, defaultValue)
	if filepath.IsAbs(dir) {
		return dir
	}
	return filepath.Join(BaseDir(), dir)
}

func BaseDir() string {
	baseDir := String("BASE_DIR", ".")
	return tildeExpand(baseDir)
}

// expand ~(tilde), e.g. ~/log becomes $HOME/log
func tildeExpand(p string) string {
	usr, err := user.Current()
	if err != nil {
		return p
	}
	dir := usr.HomeDir

	if p == "~" {
		p = dir
	} else if strings.HasPrefix(p, "~/") {
		p = filepath.Join(dir, p[2:])
	}
	return p
}
