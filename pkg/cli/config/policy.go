package config

import (
	"context"
	"os"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/pelletier/go-toml/v2"
	"github.com/urfave/cli/v3"

	"github.com/clinsec-lab/asklepios/pkg/domain/interfaces"
	"github.com/clinsec-lab/asklepios/pkg/domain/model"
	"github.com/clinsec-lab/asklepios/pkg/domain/types"
	"github.com/clinsec-lab/asklepios/pkg/usecase"
	"github.com/clinsec-lab/asklepios/pkg/utils/logging"
)

// PolicyConfig is the access policy file: role capability overrides plus
// seed principals written into the principal store at startup.
type PolicyConfig struct {
	Roles      []RoleOverride  `toml:"role"`
	Principals []PrincipalSeed `toml:"principal"`
}

// RoleOverride adjusts the capability of a built-in role
type RoleOverride struct {
	Name                string `toml:"name"`
	CanAccessAnyPatient bool   `toml:"can_access_any_patient"`
}

// Validate checks if the RoleOverride is valid
func (r *RoleOverride) Validate() error {
	if _, err := types.ParseRole(r.Name); err != nil {
		return goerr.Wrap(err, "invalid role override")
	}
	return nil
}

// PrincipalSeed declares a principal to upsert at startup
type PrincipalSeed struct {
	ID     string   `toml:"id"`
	Name   string   `toml:"name"`
	Roles  []string `toml:"roles"`
	Grants []string `toml:"grants"`
}

// Validate checks if the PrincipalSeed is valid
func (p *PrincipalSeed) Validate() error {
	if p.ID == "" {
		return goerr.New("principal id is required")
	}
	if p.Name == "" {
		return goerr.New("principal name is required", goerr.V("id", p.ID))
	}
	for _, role := range p.Roles {
		if _, err := types.ParseRole(role); err != nil {
			return goerr.Wrap(err, "invalid principal role", goerr.V("id", p.ID))
		}
	}
	return nil
}

// Validate checks if the PolicyConfig is valid
func (p *PolicyConfig) Validate() error {
	roleNames := make(map[string]bool)
	for _, r := range p.Roles {
		if err := r.Validate(); err != nil {
			return err
		}
		if roleNames[r.Name] {
			return goerr.New("duplicate role override", goerr.V("name", r.Name))
		}
		roleNames[r.Name] = true
	}

	principalIDs := make(map[string]bool)
	for _, seed := range p.Principals {
		if err := seed.Validate(); err != nil {
			return err
		}
		if principalIDs[seed.ID] {
			return goerr.New("duplicate principal ID", goerr.V("id", seed.ID))
		}
		principalIDs[seed.ID] = true
	}

	return nil
}

// LoadPolicyConfiguration loads the access policy from a TOML file
func LoadPolicyConfiguration(path string) (*PolicyConfig, error) {
	// #nosec G304 - path is expected to be provided by CLI argument
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to read policy file", goerr.V("path", path))
	}

	var config PolicyConfig
	if err := toml.Unmarshal(data, &config); err != nil {
		return nil, goerr.Wrap(err, "failed to parse TOML policy", goerr.V("path", path))
	}

	if err := config.Validate(); err != nil {
		return nil, goerr.Wrap(err, "policy validation failed", goerr.V("path", path))
	}

	return &config, nil
}

// Capabilities returns the capability table with the overrides applied
func (p *PolicyConfig) Capabilities() map[types.Role]types.Capability {
	caps := types.DefaultCapabilities()
	for _, r := range p.Roles {
		caps[types.Role(r.Name)] = types.Capability{
			CanAccessAnyPatient: r.CanAccessAnyPatient,
		}
	}
	return caps
}

// Policy holds the CLI flag for the access policy file
type Policy struct {
	path string
}

// Flags returns CLI flags for policy configuration
func (p *Policy) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "policy",
			Usage:       "Path to the TOML access policy file",
			Sources:     cli.EnvVars("ASKLEPIOS_POLICY"),
			Destination: &p.path,
		},
	}
}

// Configure loads the policy file, seeds its principals into the store, and
// returns the access gate to use. Without a policy file the default
// capability table applies and nothing is seeded.
func (p *Policy) Configure(ctx context.Context, repo interfaces.Repository) (*usecase.AccessGate, error) {
	if p.path == "" {
		return usecase.NewAccessGate(), nil
	}

	policy, err := LoadPolicyConfiguration(p.path)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	for _, seed := range policy.Principals {
		roles := make([]types.Role, len(seed.Roles))
		for i, r := range seed.Roles {
			roles[i] = types.Role(r)
		}
		grants := make([]types.PatientID, len(seed.Grants))
		for i, g := range seed.Grants {
			grants[i] = types.PatientID(g)
		}

		principal := &model.Principal{
			ID:        types.PrincipalID(seed.ID),
			Name:      seed.Name,
			Roles:     roles,
			Grants:    grants,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if err := repo.Principal().Put(ctx, principal); err != nil {
			return nil, goerr.Wrap(err, "failed to seed principal", goerr.V("id", seed.ID))
		}
	}

	logging.Default().Info("Access policy loaded",
		"path", p.path,
		"role_overrides", len(policy.Roles),
		"principals", len(policy.Principals),
	)

	return usecase.NewAccessGateWithCapabilities(policy.Capabilities()), nil
}
