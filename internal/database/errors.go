package database

import "errors"

// ErrInvalidDatabaseURL indicates the connection string could not be parsed.
var ErrInvalidDatabaseURL = errors.New("invalid database URL")

// ErrConnectionFailed indicates the database did not answer.
var ErrConnectionFailed = errors.New("database connection failed")

// ErrLockNotAcquired indicates another engine process holds the advisory lock.
var ErrLockNotAcquired = errors.New("engine lock held by another process")
