package cli

import (
	"context"
	"fmt"
)

// getSimpleText and getPassword are indirections used to facilitate testing.
// They point to interactive input helpers and can be swapped in tests.
var getSimpleText = GetSimpleText
var getPassword = GetPassword

// Register prompts for a username and password and creates the curator.
func (a *App) Register(ctx context.Context) error {
	userName, err := getSimpleText(a.reader, "Enter username", a.out)
	if err != nil {
		return err
	}
	password, err := getPassword(a.out)
	if err != nil {
		return err
	}

	if _, err := a.authService.Register(ctx, userName, password); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Registered. Use 'login' to start a session.")
	return nil
}

// Login authenticates against the server and keeps the session locally, so
// later runs can work offline without logging in again.
func (a *App) Login(ctx context.Context) error {
	userName, err := getSimpleText(a.reader, "Enter username", a.out)
	if err != nil {
		return err
	}
	password, err := getPassword(a.out)
	if err != nil {
		return err
	}

	s, err := a.authService.Login(ctx, userName, password)
	if err != nil {
		return err
	}
	a.setSession(s)
	fmt.Fprintf(a.out, "Logged in as %s\n", s.Username)
	return nil
}

// Logout forgets the session. Local entities are kept.
func (a *App) Logout(ctx context.Context) error {
	if err := a.authService.Logout(ctx); err != nil {
		return err
	}
	a.setSession(nil)
	fmt.Fprintln(a.out, "Logged out")
	return nil
}
