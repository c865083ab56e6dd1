// Command coldrig is the operator CLI for the cold-test rig daemon.
//
// It talks to coldrigd over the Unix socket for status, event, and sweep
// history queries, flips the run/stop control markers the daemon's control
// loop watches, and ships configuration utilities.
package main
