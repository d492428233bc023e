// Package cli implements the interactive gophidentity command line client.
//
// The REPL reads one command per line and dispatches to App methods which
// prompt for their own input. Passwords are read without echo and wiped
// once sent.
//
//	Not logged in: help, register, login, exit | quit
//	Logged in:     help, whoami, profile, passwd, roles, createrole,
//	               grant, revoke, deleteme, logout, exit | quit
package cli
