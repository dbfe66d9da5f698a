//go:build !wasm
// +build !wasm

// Package gorm provides a GORM-backed authcore directory. It works with any
// database GORM supports; the server wires PostgreSQL and SQLite.
//
// # Database Schema
//
// AutoMigrate creates a single users table with unique indexes on email and
// github_id. Those indexes are what keeps two concurrent registrations for the
// same email from both succeeding: the loser gets a conflict, which the
// orchestrator reports as an existing account.
//
// # Usage
//
//	db, _ := gorm.Open(postgres.Open(dsn), &gorm.Config{TranslateError: true})
//	_ = gormstore.AutoMigrate(db)
//	directory := authcore.NewDirectoryClient(gormstore.NewDirectoryStore(db))
package gorm
