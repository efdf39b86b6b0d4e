// Command entfiles-seed creates user accounts. Users come either from a
// YAML file (-users) or from the -email/-password/-name/-role flags.
//
//	users:
//	  - email: prof@school.edu
//	    password: change-me
//	    name: Prof
//	    role: teacher
//
// Accounts whose email already exists are skipped.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.yaml.in/yaml/v3"

	"github.com/koustreak/entfiles/internal/auth"
	"github.com/koustreak/entfiles/internal/config"
	"github.com/koustreak/entfiles/internal/database"
	"github.com/koustreak/entfiles/internal/database/mysql"
	"github.com/koustreak/entfiles/internal/database/postgres"
	"github.com/koustreak/entfiles/internal/errs"
	"github.com/koustreak/entfiles/internal/logger"
	"github.com/koustreak/entfiles/internal/model"
	"github.com/koustreak/entfiles/internal/repository"
)

type seedUser struct {
	Email    string     `yaml:"email"`
	Password string     `yaml:"password"`
	Name     string     `yaml:"name"`
	Role     model.Role `yaml:"role"`
}

type seedFile struct {
	Users []seedUser `yaml:"users"`
}

func main() {
	configFile := flag.String("config", os.Getenv("ENTFILES_CONFIG"), "path to a YAML config file")
	usersFile := flag.String("users", "", "YAML file listing the users to create")
	one := seedUser{}
	flag.StringVar(&one.Email, "email", "", "email of a single user to create")
	flag.StringVar(&one.Password, "password", "", "password of the single user")
	flag.StringVar(&one.Name, "name", "", "display name of the single user")
	role := flag.String("role", string(model.RoleStudent), "role of the single user: student, teacher or admin")
	flag.Parse()
	one.Role = model.Role(*role)

	cfg, err := config.Load(config.Options{ConfigFile: *configFile})
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	log := logger.New(&logger.Config{Level: cfg.Log.Level, Format: cfg.Log.Format}).Component("seed")

	users, err := collect(*usersFile, one)
	if err != nil {
		log.ErrorWith("no users to seed", err, nil)
		os.Exit(2)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	created, skipped, err := seed(ctx, cfg, users, log)
	if err != nil {
		log.ErrorWith("seed failed", err, nil)
		os.Exit(1)
	}
	log.InfoWith("seed completed", map[string]any{"created": created, "skipped": skipped})
}

func collect(path string, one seedUser) ([]seedUser, error) {
	if path == "" {
		if one.Email == "" {
			return nil, errors.New("pass -users or -email")
		}
		return []seedUser{one}, validate(one)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var f seedFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if len(f.Users) == 0 {
		return nil, fmt.Errorf("%s lists no users", path)
	}

	var problems []error
	for i, u := range f.Users {
		if err := validate(u); err != nil {
			problems = append(problems, fmt.Errorf("users[%d]: %w", i, err))
		}
	}
	return f.Users, errors.Join(problems...)
}

func validate(u seedUser) error {
	switch {
	case !strings.Contains(u.Email, "@"):
		return fmt.Errorf("invalid email %q", u.Email)
	case u.Password == "":
		return fmt.Errorf("%s: empty password", u.Email)
	case !u.Role.Valid():
		return fmt.Errorf("%s: unknown role %q", u.Email, u.Role)
	}
	return nil
}

func seed(ctx context.Context, cfg *config.Config, users []seedUser, log *logger.Logger) (created, skipped int, err error) {
	var db database.DB
	switch cfg.Database.Driver {
	case database.DriverMySQL:
		db, err = mysql.New(ctx, &cfg.Database)
	default:
		db, err = postgres.New(ctx, &cfg.Database)
	}
	if err != nil {
		return 0, 0, err
	}
	defer db.Close()

	if err := repository.Migrate(ctx, db); err != nil {
		return 0, 0, err
	}

	hasher := auth.NewPasswordHasher(cfg.Auth.BcryptCost)
	repo := repository.NewUsers(db, cfg.Database.QueryTimeout)

	for _, su := range users {
		hash, err := hasher.Hash(su.Password)
		if err != nil {
			return created, skipped, err
		}
		name := su.Name
		if name == "" {
			name, _, _ = strings.Cut(su.Email, "@")
		}

		u := &model.User{
			ID:           uuid.NewString(),
			Email:        su.Email,
			PasswordHash: hash,
			Name:         name,
			Role:         su.Role,
			RegisteredAt: time.Now().UTC(),
		}
		if err := repo.Insert(ctx, u); err != nil {
			if errs.IsConflict(err) {
				log.With().Str("email", su.Email).Logger().Warn("user already exists, skipped")
				skipped++
				continue
			}
			return created, skipped, err
		}
		log.With().Str("email", u.Email).Str("role", string(u.Role)).Logger().Info("user created")
		created++
	}
	return created, skipped, nil
}
