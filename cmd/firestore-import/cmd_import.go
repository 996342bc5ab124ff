package main

import (
	"context"
	"fmt"
	"io"
	"math"
	"os"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/HerbHall/firestore-import/internal/backup"
	"github.com/HerbHall/firestore-import/internal/config"
	"github.com/HerbHall/firestore-import/internal/credentials"
	"github.com/HerbHall/firestore-import/internal/dbref"
	"github.com/HerbHall/firestore-import/internal/importer"
	"github.com/HerbHall/firestore-import/internal/output"
	"github.com/HerbHall/firestore-import/internal/prompt"
	"github.com/HerbHall/firestore-import/internal/store"
	"github.com/HerbHall/firestore-import/internal/version"
)

const programName = "firestore-import"

// sink is an importer.Sink holding a connection.
type sink interface {
	importer.Sink
	Close() error
}

// sinkOpener connects to the target database once the import is confirmed.
type sinkOpener func(ctx context.Context, creds *credentials.Credentials, database string, logger *zap.Logger) (sink, error)

type app struct {
	stdin    io.Reader
	stdout   io.Writer
	stderr   io.Writer
	openSink sinkOpener
}

func newApp() *app {
	return &app{
		stdin:    os.Stdin,
		stdout:   os.Stdout,
		stderr:   os.Stderr,
		openSink: openFirestore,
	}
}

func openFirestore(ctx context.Context, creds *credentials.Credentials, database string, logger *zap.Logger) (sink, error) {
	return store.Open(ctx, creds.ProjectID, database, logger, creds.ClientOption())
}

// usageError marks errors that should be followed by the usage text.
type usageError struct{ err error }

func (e *usageError) Error() string { return e.err.Error() }
func (e *usageError) Unwrap() error { return e.err }

func (a *app) newRootCmd() *cobra.Command {
	v := viper.New()
	cmd := &cobra.Command{
		Use:     programName + " -b <backupFile> [-a <accountCredentials>] [-n <nodePath>] [-y]",
		Short:   "Restore a JSON backup into Cloud Firestore",
		Version: version.Short(),
		Args: func(cmd *cobra.Command, args []string) error {
			if err := cobra.NoArgs(cmd, args); err != nil {
				return &usageError{err: err}
			}
			return nil
		},
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			opts := config.Load(v)
			if err := opts.Validate(); err != nil {
				return &usageError{err: err}
			}
			logger := newLogger(a.stderr, opts.Verbose)
			defer func() { _ = logger.Sync() }()
			return a.runImport(cmd.Context(), opts, logger)
		},
	}
	cmd.SetVersionTemplate(version.Info() + "\n")
	cmd.SetIn(a.stdin)
	cmd.SetOut(a.stdout)
	cmd.SetErr(a.stderr)
	cmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return &usageError{err: err}
	})

	config.RegisterFlags(cmd.Flags())
	if err := config.Bind(v, cmd.Flags()); err != nil {
		// Only fails on a nil flag set.
		panic(err)
	}
	return cmd
}

// run executes the command line and returns the process exit code.
func (a *app) run(ctx context.Context, args []string) int {
	cmd := a.newRootCmd()
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(ctx)
	return a.report(cmd, err)
}

// report prints err the way the user should see it and maps it to an exit
// code: 0 on success, 1 for everything else including a declined prompt.
func (a *app) report(cmd *cobra.Command, err error) int {
	if err == nil {
		return 0
	}
	printer := output.NewPrinter(a.stdout)

	var verr *config.ValidationError
	var uerr *usageError
	switch {
	case errors.As(err, &verr):
		switch verr.Reason {
		case config.ReasonMissing:
			printer.Missing(verr.Key, verr.Description)
		case config.ReasonNotExist:
			printer.NotExist(verr.Label, verr.Path)
		default:
			printer.Error(verr.Error())
		}
		_ = cmd.Usage()
	case errors.As(err, &uerr):
		printer.Error(uerr.Error())
		_ = cmd.Usage()
	case prompt.IsAborted(err):
		printer.Error("Import aborted.")
	default:
		printer.Error("Error: " + err.Error())
		if code := status.Code(errors.UnwrapAll(err)); code != codes.OK && code != codes.Unknown {
			printer.Error("Status: " + code.String())
		}
		printer.Error(fmt.Sprintf("%+v", err))
	}
	return 1
}

// runImport loads credentials, target and backup concurrently, asks for
// confirmation unless opts.Yes, then writes the backup.
func (a *app) runImport(ctx context.Context, opts config.Options, logger *zap.Logger) error {
	printer := output.NewPrinter(a.stdout)
	logger.Debug("starting import",
		zap.Any("build", version.Fields()),
		zap.String("backup", opts.BackupFile),
		zap.String("node_path", opts.NodePath))

	var (
		creds  *credentials.Credentials
		target dbref.Ref
		tree   backup.Node
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		creds, err = credentials.Load(gctx, opts.AccountCredentialsPath)
		return err
	})
	g.Go(func() (err error) {
		target, err = dbref.Resolve(opts.NodePath)
		return err
	})
	g.Go(func() (err error) {
		tree, err = backup.Load(opts.BackupFile)
		return err
	})
	if err := g.Wait(); err != nil {
		return err
	}

	if !opts.Yes {
		printer.Info(fmt.Sprintf("About to import data '%s' to the '%s' firestore at '%s'.",
			opts.BackupFile, creds.ProjectID, target))
		printer.Warning(" === Warning: This will overwrite existing data. Do you want to proceed? === ")
		ok, err := prompt.New(a.stdin, a.stdout, programName).Confirm(printer.Danger("Proceed with import? [y/N] "))
		if err != nil {
			return err
		}
		if !ok {
			return prompt.ErrAborted
		}
	}

	dst, err := a.openSink(ctx, creds, opts.Database, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := dst.Close(); err != nil {
			logger.Warn("closing database connection", zap.Error(err))
		}
	}()

	metrics := importer.NewMetrics()
	imOpts := []importer.Option{
		importer.WithBatchSize(opts.BatchSize),
		importer.WithConcurrency(opts.Concurrency),
		importer.WithMerge(opts.Merge),
		importer.WithMetrics(metrics),
	}
	if opts.Rate > 0 {
		burst := max(opts.BatchSize, int(math.Ceil(opts.Rate)))
		imOpts = append(imOpts, importer.WithLimiter(rate.NewLimiter(rate.Limit(opts.Rate), burst)))
	}

	importErr := importer.New(dst, logger, imOpts...).Import(ctx, tree, target)
	if opts.MetricsFile != "" {
		if err := metrics.WriteTextfile(opts.MetricsFile); err != nil {
			if importErr == nil {
				return err
			}
			logger.Warn("metrics not written", zap.Error(err))
		}
	}
	if importErr != nil {
		return importErr
	}

	printer.Success("All done 🎉")
	return nil
}
