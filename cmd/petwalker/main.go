package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/term"

	apiclient "github.com/PietroNozella/PetWalker/pkg/api/client"
)

const defaultAPIBase = "http://localhost:8000"

type cliConfig struct {
	APIBaseURL  string `json:"api_base_url"`
	AccessToken string `json:"access_token"`
}

var buildVersion = "dev"

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}
	cmd := os.Args[1]
	args := os.Args[2:]

	var err error
	switch cmd {
	case "login":
		err = commandLogin(args)
	case "logout":
		err = commandLogout()
	case "me":
		err = commandMe()
	case "stats":
		err = commandStats()
	case "owners":
		err = commandOwners()
	case "dogs":
		err = commandDogs(args)
	case "public":
		err = commandPublic(args)
	case "version", "--version", "-v":
		printVersion()
		return
	case "help", "-h", "--help":
		printUsage()
		return
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n", cmd)
		printUsage()
		os.Exit(1)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func commandLogin(args []string) error {
	fs := flag.NewFlagSet("login", flag.ExitOnError)
	email := fs.String("email", "", "Email address")
	password := fs.String("password", "", "Password (supply to avoid prompt)")
	apiBase := fs.String("api", "", "API base URL (default "+defaultAPIBase+")")
	fs.Parse(args)

	if strings.TrimSpace(*email) == "" {
		return errors.New("--email is required")
	}

	secret := strings.TrimSpace(*password)
	if secret == "" {
		fmt.Print("Password: ")
		bytes, err := term.ReadPassword(int(os.Stdin.Fd()))
		fmt.Print("\n")
		if err != nil {
			return fmt.Errorf("read password: %w", err)
		}
		secret = string(bytes)
	}

	cfg, _ := loadConfig()
	if strings.TrimSpace(*apiBase) != "" {
		cfg.APIBaseURL = *apiBase
	}

	client, err := apiclient.New(cfg.APIBaseURL)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	token, err := client.Login(ctx, *email, secret)
	if err != nil {
		return err
	}
	cfg.APIBaseURL = client.BaseURL()
	cfg.AccessToken = token.AccessToken
	if err := saveConfig(cfg); err != nil {
		return err
	}
	fmt.Printf("login successful (token valid for %s)\n", time.Duration(token.ExpiresIn)*time.Second)
	return nil
}

func commandLogout() error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	cfg.AccessToken = ""
	if err := saveConfig(cfg); err != nil {
		return err
	}
	fmt.Println("logged out")
	return nil
}

func commandMe() error {
	client, token, err := authedClient()
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	user, err := client.Me(ctx, token)
	if err != nil {
		return err
	}
	role := "owner"
	if user.IsAdmin {
		role = "admin"
	}
	fmt.Printf("%d\t%s\t%s\t%s\n", user.ID, user.Email, user.Name, role)
	return nil
}

func commandStats() error {
	client, token, err := authedClient()
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	stats, err := client.Stats(ctx, token)
	if err != nil {
		return err
	}
	fmt.Printf("dogs:      %d\n", stats.TotalDogs)
	fmt.Printf("owners:    %d\n", stats.TotalOwners)
	fmt.Printf("walks:     %d (%d pending)\n", stats.TotalWalks, stats.PendingWalks)
	fmt.Printf("trainings: %d (%d pending)\n", stats.TotalTrainings, stats.PendingTrainings)
	return nil
}

func commandOwners() error {
	client, token, err := authedClient()
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	owners, err := client.ListOwners(ctx, token)
	if err != nil {
		return err
	}
	for _, o := range owners {
		fmt.Printf("%d\t%s\t%s\t%s\n", o.ID, o.Email, o.Name, deref(o.Phone))
	}
	return nil
}

func commandDogs(args []string) error {
	if len(args) == 0 {
		return dogList(nil)
	}
	switch args[0] {
	case "list":
		return dogList(args[1:])
	case "show":
		return dogShow(args[1:])
	case "rotate-code":
		return dogRotate(args[1:])
	default:
		return fmt.Errorf("unknown dogs command: %s", args[0])
	}
}

func dogList(args []string) error {
	fs := flag.NewFlagSet("dogs list", flag.ExitOnError)
	limit := fs.Int("limit", 0, "Maximum number of dogs to display")
	fs.Parse(args)

	client, token, err := authedClient()
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	dogs, err := client.ListDogs(ctx, token)
	if err != nil {
		return err
	}
	count := len(dogs)
	if *limit > 0 && *limit < count {
		count = *limit
	}
	for i := 0; i < count; i++ {
		d := dogs[i]
		fmt.Printf("%d\t%s\t%s\towner=%d\t%s\n", d.ID, d.Name, deref(d.Breed), d.OwnerID, d.AccessCode)
	}
	return nil
}

func dogShow(args []string) error {
	fs := flag.NewFlagSet("dogs show", flag.ExitOnError)
	id := fs.Int64("id", 0, "Dog identifier")
	fs.Parse(args)
	if *id <= 0 {
		return errors.New("--id is required")
	}

	client, token, err := authedClient()
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	profile, err := client.GetDog(ctx, token, *id)
	if err != nil {
		return err
	}
	printProfile(profile)
	fmt.Printf("public page: %s\n", client.PublicURL(profile.AccessCode))
	return nil
}

func dogRotate(args []string) error {
	fs := flag.NewFlagSet("dogs rotate-code", flag.ExitOnError)
	id := fs.Int64("id", 0, "Dog identifier")
	fs.Parse(args)
	if *id <= 0 {
		return errors.New("--id is required")
	}

	client, token, err := authedClient()
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	dog, err := client.RotateAccessCode(ctx, token, *id)
	if err != nil {
		return err
	}
	fmt.Printf("new access code for %s: %s\n", dog.Name, dog.AccessCode)
	fmt.Printf("public page: %s\n", client.PublicURL(dog.AccessCode))
	return nil
}

func commandPublic(args []string) error {
	fs := flag.NewFlagSet("public", flag.ExitOnError)
	code := fs.String("code", "", "Dog access code")
	fs.Parse(args)
	if strings.TrimSpace(*code) == "" {
		return errors.New("--code is required")
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	client, err := apiclient.New(cfg.APIBaseURL)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	profile, err := client.PublicProfile(ctx, strings.TrimSpace(*code))
	if err != nil {
		return err
	}
	printProfile(profile)
	return nil
}

func printProfile(p apiclient.Profile) {
	fmt.Printf("%s (#%d)\n", p.Name, p.ID)
	if p.Breed != nil {
		fmt.Printf("breed:  %s\n", *p.Breed)
	}
	if p.Age != nil {
		fmt.Printf("age:    %d\n", *p.Age)
	}
	if p.Weight != nil {
		fmt.Printf("weight: %.1f kg\n", *p.Weight)
	}
	if p.Owner != nil {
		fmt.Printf("owner:  %s %s\n", p.Owner.Name, deref(p.Owner.Phone))
	}
	fmt.Printf("walks:\n")
	for _, w := range p.Walks {
		fmt.Printf("  %s\t%dmin\t%s\t%s\n", w.ScheduledDate.Format(time.RFC3339), w.DurationMinutes, w.Status, deref(w.Location))
	}
	fmt.Printf("trainings:\n")
	for _, tr := range p.Trainings {
		fmt.Printf("  %s\t%dmin\t%s\t%s\n", tr.ScheduledDate.Format(time.RFC3339), tr.DurationMinutes, tr.Status, deref(tr.TrainingType))
	}
	fmt.Printf("media: %d item(s)\n", len(p.Media))
}

func authedClient() (*apiclient.Client, string, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, "", err
	}
	token := strings.TrimSpace(cfg.AccessToken)
	if token == "" {
		return nil, "", errors.New("please login first using 'petwalker login'")
	}
	client, err := apiclient.New(cfg.APIBaseURL)
	if err != nil {
		return nil, "", err
	}
	return client, token, nil
}

func deref(s *string) string {
	if s == nil {
		return "-"
	}
	return *s
}

func loadConfig() (cliConfig, error) {
	path, err := configPath()
	if err != nil {
		return cliConfig{}, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cliConfig{APIBaseURL: defaultAPIBase}, nil
		}
		return cliConfig{}, err
	}
	var cfg cliConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return cliConfig{}, err
	}
	if cfg.APIBaseURL == "" {
		cfg.APIBaseURL = defaultAPIBase
	}
	return cfg, nil
}

func saveConfig(cfg cliConfig) error {
	path, err := configPath()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return err
	}
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

func configPath() (string, error) {
	base, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(base, "petwalker", "config.json"), nil
}

func printUsage() {
	fmt.Printf("petwalker CLI %s\n\n", buildVersion)
	fmt.Print(`Usage:
	petwalker login --email admin@petwalker.com [--password secret] [--api ` + defaultAPIBase + `]
	petwalker logout
	petwalker me
	petwalker stats
	petwalker owners
	petwalker dogs [list] [--limit N]
	petwalker dogs show --id <dog-id>
	petwalker dogs rotate-code --id <dog-id>
	petwalker public --code <access-code>
	petwalker version
`)
}

func printVersion() {
	fmt.Println(strings.TrimSpace(buildVersion))
}
