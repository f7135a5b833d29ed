// Package lib provides a Go SDK for coordinating device suspend and resume
// programmatically.
//
// This package allows applications to load device trees, inspect the registry
// and run suspend/resume operations without shelling out to the devco CLI
// binary. It is useful for scripting, automation, and building tools on top
// of devco.
//
// # Quick Start
//
// Create a client, import a device tree, and suspend it:
//
//	client, err := lib.New(ctx, lib.Config{})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	// Import a device tree definition.
//	devices, err := client.LoadTree(ctx, "tree.yaml", nil)
//
//	// Suspend the root device and its whole subtree, children first.
//	report, err := client.Suspend(ctx, "board", nil)
//
//	// Wake a device back up, suspended ancestors first.
//	report, err = client.Resume(ctx, "board")
//
// # Host engines
//
// The SDK supports two host engine types:
//
//   - [HostsDocker]: Devices whose drivers run in Docker containers. Suspend
//     pauses the container, resume unpauses it.
//   - [HostsFake]: In-memory simulation for unit testing. No real
//     infrastructure needed. Set [Config].Hosts to [HostsFake] to use it.
//
// # Error Handling
//
// All methods return errors that can be inspected with [errors.Is]:
//
//   - [ErrNotFound]: Device does not exist.
//   - [ErrAlreadyExists]: The registry already holds devices (load without replace).
//   - [ErrNotValid]: Invalid input or operation (e.g. suspending an already
//     suspended device).
//
// # Testing
//
// Use [HostsFake] and a temporary database path to write tests without real
// infrastructure:
//
//	client, _ := lib.New(ctx, lib.Config{
//	    DBPath: filepath.Join(t.TempDir(), "test.db"),
//	    Hosts:  lib.HostsFake,
//	})
//	defer client.Close()
//
// # Thread Safety
//
// A [Client] is safe for concurrent use from multiple goroutines. The
// underlying storage uses SQLite with WAL mode, and each suspend or resume
// operation runs on its own dispatcher.
package lib
