package config

import (
	"net"
	"net/url"
	"strconv"

	"github.com/itemstack/backend/internal/secrets"
)

const defaultDatabaseHost = "localhost"

// WithCredentials returns a copy of d in which every key present in creds
// replaces the environment-derived value. Keys absent from creds are left
// untouched; nothing is synthesized for them.
func (d DatabaseConfig) WithCredentials(creds secrets.Credentials) DatabaseConfig {
	if v, ok := creds.Get(secrets.KeyHost); ok {
		d.Host = v
	}
	if v, ok := creds.Get(secrets.KeyUsername); ok {
		d.Username = v
	}
	if v, ok := creds.Get(secrets.KeyPassword); ok {
		d.Password = v
	}
	if v, ok := creds.Get(secrets.KeyDatabase); ok {
		d.Name = v
	}
	return d
}

// ConnString returns URL when set; otherwise it builds a postgres URL from
// the discrete fields. Discrete fields set alongside URL are applied as
// overrides by the database package.
func (d DatabaseConfig) ConnString() string {
	if d.URL != "" {
		return d.URL
	}

	host := d.Host
	if host == "" {
		host = defaultDatabaseHost
	}
	u := url.URL{
		Scheme: "postgres",
		Host:   net.JoinHostPort(host, strconv.Itoa(d.Port)),
		Path:   "/" + d.Name,
	}
	switch {
	case d.Password != "":
		u.User = url.UserPassword(d.Username, d.Password)
	case d.Username != "":
		u.User = url.User(d.Username)
	}
	if d.SSLMode != "" {
		u.RawQuery = url.Values{"sslmode": {d.SSLMode}}.Encode()
	}
	return u.String()
}

// Redacted returns a loggable description of the target database. Fields
// supplied by the secret store are reported as present or absent only; the
// environment-derived ones are shown as configured.
func (d DatabaseConfig) Redacted(fromSecret secrets.Credentials) map[string]string {
	host := d.Host
	if host == "" && d.URL == "" {
		host = defaultDatabaseHost
	}
	out := map[string]string{
		"url_set":      strconv.FormatBool(d.URL != ""),
		"password_set": strconv.FormatBool(d.Password != ""),
	}
	for _, f := range []struct{ label, key, value string }{
		{"host", secrets.KeyHost, host},
		{"database", secrets.KeyDatabase, d.Name},
		{"username", secrets.KeyUsername, d.Username},
	} {
		if _, ok := fromSecret.Get(f.key); ok {
			out[f.label+"_set"] = strconv.FormatBool(f.value != "")
			continue
		}
		out[f.label] = f.value
	}
	return out
}
