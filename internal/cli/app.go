// Package cli is the patient command line: it logs in, keeps the session on disk and
// calls the booking API through session.Client.
package cli

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"strings"

	"medicare-pro/internal/booking"
	"medicare-pro/internal/catalog"
	"medicare-pro/internal/patient"
	"medicare-pro/internal/session"
)

const (
	ExitOK = iota
	ExitError
	ExitUsage
	ExitLoginRequired
)

// API is the subset of session.Client the commands use.
type API interface {
	Register(ctx context.Context, name, email, password string) error
	Login(ctx context.Context, email, password string) (session.Tokens, error)
	Preflight(ctx context.Context) (patient.Public, error)
	Refresh(ctx context.Context) (session.Tokens, error)
	Tests(ctx context.Context) ([]catalog.MedicalTest, error)
	Bookings(ctx context.Context) (session.BookingList, error)
	CreateBooking(ctx context.Context, req session.BookingRequest) (booking.Booking, error)
	Logout(ctx context.Context) error
}

type App struct {
	api    API
	in     *bufio.Reader
	out    io.Writer
	errOut io.Writer
}

func NewApp(api API, in io.Reader, out, errOut io.Writer) *App {
	return &App{api: api, in: bufio.NewReader(in), out: out, errOut: errOut}
}

const usage = `usage: clinic <command> [flags]

commands:
  register   create a patient account
  login      log in and store the session
  whoami     show the logged-in patient
  refresh    exchange the refresh token for a new pair
  tests      list bookable tests
  book       book a test (-test ID [-date YYYY-MM-DD] [-time HH:MM])
  bookings   list your bookings
  logout     end the session
`

func (a *App) Run(ctx context.Context, args []string) int {
	if len(args) == 0 {
		fmt.Fprint(a.errOut, usage)
		return ExitUsage
	}

	cmd, rest := args[0], args[1:]
	var err error
	switch cmd {
	case "register":
		err = a.register(ctx, rest)
	case "login":
		err = a.login(ctx, rest)
	case "whoami":
		err = a.whoami(ctx)
	case "refresh":
		err = a.refresh(ctx)
	case "tests":
		err = a.tests(ctx)
	case "book":
		err = a.book(ctx, rest)
	case "bookings":
		err = a.bookings(ctx)
	case "logout":
		err = a.logout(ctx)
	case "help", "-h", "--help":
		fmt.Fprint(a.out, usage)
		return ExitOK
	default:
		fmt.Fprintf(a.errOut, "unknown command %q\n\n%s", cmd, usage)
		return ExitUsage
	}

	return a.exitCode(err)
}

func (a *App) exitCode(err error) int {
	if err == nil {
		return ExitOK
	}

	var usageErr usageError
	if errors.As(err, &usageErr) {
		fmt.Fprintln(a.errOut, usageErr.Error())
		return ExitUsage
	}

	if session.IsAuthFailure(err) {
		fmt.Fprintln(a.errOut, "Your session has ended. Run `clinic login` to continue.")
		return ExitLoginRequired
	}

	var se *session.Error
	if errors.As(err, &se) && se.Status != 0 {
		fmt.Fprintf(a.errOut, "error: %s\n", se.Message)
		return ExitError
	}
	fmt.Fprintf(a.errOut, "error: %v\n", err)
	return ExitError
}

type usageError string

func (e usageError) Error() string { return string(e) }

func (a *App) register(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("register", flag.ContinueOnError)
	fs.SetOutput(a.errOut)
	name := fs.String("name", "", "full name")
	email := fs.String("email", "", "email address")
	password := fs.String("password", "", "password (prompted when omitted)")
	if err := fs.Parse(args); err != nil {
		return usageError(err.Error())
	}

	if err := a.fillLine(name, "Name"); err != nil {
		return err
	}
	if err := a.fillLine(email, "Email"); err != nil {
		return err
	}
	if err := a.fillPassword(password); err != nil {
		return err
	}

	if err := a.api.Register(ctx, *name, *email, *password); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Registered. Run `clinic login` to sign in.")
	return nil
}

func (a *App) login(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("login", flag.ContinueOnError)
	fs.SetOutput(a.errOut)
	email := fs.String("email", "", "email address")
	password := fs.String("password", "", "password (prompted when omitted)")
	if err := fs.Parse(args); err != nil {
		return usageError(err.Error())
	}

	if err := a.fillLine(email, "Email"); err != nil {
		return err
	}
	if err := a.fillPassword(password); err != nil {
		return err
	}

	if _, err := a.api.Login(ctx, *email, *password); err != nil {
		// a wrong password is not an expired session
		if session.KindOf(err) == session.KindUnauthenticated || session.KindOf(err) == session.KindNotFound {
			return errors.New("invalid email or password")
		}
		return err
	}
	fmt.Fprintln(a.out, "Logged in.")
	return nil
}

func (a *App) whoami(ctx context.Context) error {
	p, err := a.api.Preflight(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "%s <%s>\n", p.Name, p.Email)
	return nil
}

func (a *App) refresh(ctx context.Context) error {
	if _, err := a.api.Refresh(ctx); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Session refreshed.")
	return nil
}

func (a *App) tests(ctx context.Context) error {
	tests, err := a.api.Tests(ctx)
	if err != nil {
		return err
	}
	if len(tests) == 0 {
		fmt.Fprintln(a.out, "No tests available.")
		return nil
	}
	for _, t := range tests {
		fmt.Fprintf(a.out, "%s  %-28s %8.2f\n", t.ID, t.Name, t.Price)
	}
	return nil
}

func (a *App) book(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("book", flag.ContinueOnError)
	fs.SetOutput(a.errOut)
	testID := fs.String("test", "", "test id (see `clinic tests`)")
	date := fs.String("date", "", "appointment date, YYYY-MM-DD")
	clock := fs.String("time", "", "appointment time, HH:MM")
	if err := fs.Parse(args); err != nil {
		return usageError(err.Error())
	}
	if strings.TrimSpace(*testID) == "" {
		return usageError("book: -test is required")
	}

	if _, err := a.api.Preflight(ctx); err != nil {
		return err
	}

	b, err := a.api.CreateBooking(ctx, session.BookingRequest{
		TestID:          *testID,
		AppointmentDate: *date,
		AppointmentTime: *clock,
	})
	if err != nil {
		return err
	}

	name := b.TestID
	if b.Test != nil {
		name = b.Test.Name
	}
	fmt.Fprintf(a.out, "Booked %s (%s).\n", name, b.ID)
	return nil
}

func (a *App) bookings(ctx context.Context) error {
	if _, err := a.api.Preflight(ctx); err != nil {
		return err
	}

	list, err := a.api.Bookings(ctx)
	if err != nil {
		return err
	}
	if len(list.Bookings) == 0 {
		fmt.Fprintln(a.out, list.Message)
		return nil
	}

	for _, b := range list.Bookings {
		name := b.TestID
		if b.Test != nil {
			name = b.Test.Name
		}
		when := "unscheduled"
		if b.AppointmentDate != nil {
			when = *b.AppointmentDate
			if b.AppointmentTime != nil {
				when += " " + *b.AppointmentTime
			}
		}
		fmt.Fprintf(a.out, "%s  %-28s %-17s %s\n", b.ID, name, when, b.Status)
	}
	return nil
}

func (a *App) logout(ctx context.Context) error {
	if err := a.api.Logout(ctx); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Logged out.")
	return nil
}

func (a *App) fillLine(dst *string, prompt string) error {
	if strings.TrimSpace(*dst) != "" {
		return nil
	}
	v, err := promptLine(a.in, a.out, prompt)
	if err != nil {
		return fmt.Errorf("read %s: %w", strings.ToLower(prompt), err)
	}
	*dst = v
	return nil
}

func (a *App) fillPassword(dst *string) error {
	if *dst != "" {
		return nil
	}
	v, err := promptPassword(a.out)
	if err != nil {
		return fmt.Errorf("read password: %w", err)
	}
	*dst = v
	return nil
}
