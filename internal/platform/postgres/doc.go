// Package postgres provides the PostgreSQL implementation of
// store.WorksheetStore on top of database/sql with the pgx driver.
// Schema migrations are embedded and applied with goose.
package postgres
