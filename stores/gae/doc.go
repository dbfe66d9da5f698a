//go:build !wasm
// +build !wasm

// Package gae provides a Google Cloud Datastore implementation of the authcore
// directory. It supports multi-tenancy through Datastore namespaces.
//
// # Datastore Kinds
//
//   - DirectoryUser: one entity per user, keyed by canonical email
//   - ProviderKey: maps "<provider>:<id>" to the owning email
//
// Both entities are written in one transaction, so an email or provider id can
// only ever be claimed once.
//
// # Usage
//
//	client, _ := datastore.NewClient(ctx, projectID)
//	store := gae.NewDirectoryStore(client, "tenant-123")
//	directory := authcore.NewDirectoryClient(store)
package gae
