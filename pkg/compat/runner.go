package compat

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"golang.org/x/sync/errgroup"

	"github.com/ava-labs/nodeid-cli/pkg/staking"
)

// ErrMismatch is returned when two derivations disagree, or when the
// derived identifier differs from one pinned in the run spec.
var ErrMismatch = errors.New("node identifier mismatch")

// Result summarizes a successful compatibility run.
type Result struct {
	RunID      string
	KeyPath    string
	CertPath   string
	Created    bool
	ID         string
	SecondName string
}

// Runner executes one compatibility run: credentials are generated (or
// reused), then two independent derivers read the certificate back and
// must agree byte-for-byte on the identifier.
type Runner struct {
	Spec *RunSpec

	// Log receives progress; nil means slog.Default.
	Log *slog.Logger

	// Second overrides the deriver the spec would select. Tests use it
	// to substitute fakes.
	Second Deriver

	// CloudCheck, when set, runs before anything touches the
	// filesystem and fails the run if the cloud clients error.
	CloudCheck func(ctx context.Context) error
}

// Run executes the compatibility run.
func (r *Runner) Run(ctx context.Context) (*Result, error) {
	spec := r.Spec
	if spec == nil {
		return nil, fmt.Errorf("no run spec")
	}
	if err := spec.Validate(); err != nil {
		return nil, err
	}

	log := r.Log
	if log == nil {
		log = slog.Default()
	}
	log = log.With("run_id", spec.RunID)

	if r.CloudCheck != nil {
		log.Info("running cloud preflight")
		if err := r.CloudCheck(ctx); err != nil {
			return nil, fmt.Errorf("cloud preflight failed: %w", err)
		}
	}

	algorithm, err := staking.ParseAlgorithm(spec.Algorithm)
	if err != nil {
		return nil, err
	}

	if !spec.ReuseExisting {
		for _, path := range []string{spec.KeyPath, spec.CertPath} {
			if _, err := os.Stat(path); err == nil {
				return nil, fmt.Errorf("stale credential file %s: remove it or set reuse_existing", path)
			} else if !os.IsNotExist(err) {
				return nil, fmt.Errorf("failed to stat %s: %w", path, err)
			}
		}
	}

	if spec.Cleanup {
		defer func() {
			if err := staking.RemoveCredentials(spec.KeyPath, spec.CertPath); err != nil {
				log.Warn("cleanup failed", "error", err)
			}
		}()
	}

	_, _, created, err := staking.LoadOrCreate(rand.Reader, algorithm, spec.Subject, spec.KeyPath, spec.CertPath)
	if err != nil {
		return nil, err
	}
	log.Info("credentials ready", "created", created, "cert_path", spec.CertPath)

	// The write above is complete and synced; from here on both
	// derivers only read the certificate file.
	local := LocalDeriver{}
	second := r.Second
	if second == nil {
		second = secondDeriver(spec)
	}

	var localID, secondID string
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		id, err := local.Derive(gctx, spec.CertPath)
		if err != nil {
			return fmt.Errorf("%s deriver failed: %w", local.Name(), err)
		}
		localID = id
		return nil
	})
	g.Go(func() error {
		id, err := second.Derive(gctx, spec.CertPath)
		if err != nil {
			return fmt.Errorf("%s deriver failed: %w", second.Name(), err)
		}
		secondID = id
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	if localID != secondID {
		return nil, fmt.Errorf("%w: %s derived %s, %s derived %s",
			ErrMismatch, local.Name(), localID, second.Name(), secondID)
	}
	if spec.Expect != "" && localID != spec.Expect {
		return nil, fmt.Errorf("%w: derived %s, run spec expects %s", ErrMismatch, localID, spec.Expect)
	}

	log.Info("identifiers agree", "node_id", localID, "second", second.Name())
	return &Result{
		RunID:      spec.RunID,
		KeyPath:    spec.KeyPath,
		CertPath:   spec.CertPath,
		Created:    created,
		ID:         localID,
		SecondName: second.Name(),
	}, nil
}
