// Package repository reads and writes the hosted Postgres tables:
// profiles, analytics, movie_links, series_links, app_settings and, in
// standalone mode, auth_users.
package repository

import "errors"

var ErrNotFound = errors.New("not found")
