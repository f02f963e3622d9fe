package database

import (
	"net/url"
	"strconv"

	"github.com/rickgao/peerlink/internal/config"
)

// ApplicationName is reported to the server as application_name.
const ApplicationName = "peerlink"

// BuildConnString builds a PostgreSQL connection URL from config.
// Credentials are escaped, so passwords may contain any character.
func BuildConnString(cfg config.DBConfig) string {
	sslMode := cfg.SSLMode
	if sslMode == "" {
		sslMode = "prefer"
	}

	q := url.Values{}
	q.Set("sslmode", sslMode)
	q.Set("application_name", ApplicationName)

	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(cfg.User, cfg.Password),
		Host:     cfg.Host + ":" + strconv.Itoa(cfg.Port),
		Path:     "/" + cfg.Name,
		RawQuery: q.Encode(),
	}
	return u.String()
}
