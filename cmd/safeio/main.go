// safeio exposes the safeio utilities on the command line: compressing and
// decompressing files, reading flaky media with retries, copying between
// backends, finding free output names and listing forbidden path characters.
//
// Usage:
//
//	safeio [--config file] [--backend name] [--log-level level] <command> [flags] [args]
//
// Global flags override the values from the YAML config file.
package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"strings"

	"github.com/spf13/pflag"

	"github.com/grokify/safeio"
	_ "github.com/grokify/safeio/backend/file"
	_ "github.com/grokify/safeio/backend/memory"
	_ "github.com/grokify/safeio/backend/s3"
	_ "github.com/grokify/safeio/backend/sftp"
	"github.com/grokify/safeio/compress"
	_ "github.com/grokify/safeio/compress/gzip"
	_ "github.com/grokify/safeio/compress/lz4"
	_ "github.com/grokify/safeio/compress/zstd"
	"github.com/grokify/safeio/config"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	if err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return
		}
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// app carries what every command needs.
type app struct {
	cfg     *config.Config
	backend safeio.Backend
	logger  *slog.Logger
	stdout  io.Writer
}

type command func(ctx context.Context, a *app, args []string) error

var commands = map[string]command{
	"compress":   runCompress,
	"decompress": runDecompress,
	"read":       runRead,
	"copy":       runCopy,
	"name":       runName,
	"chars":      runChars,
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	var configFile, backendName, logLevel string

	flagSet := pflag.NewFlagSet("safeio", pflag.ContinueOnError)
	flagSet.SetOutput(stderr)
	flagSet.SetInterspersed(false)
	flagSet.StringVar(&configFile, "config", "", "path to a YAML config file")
	flagSet.StringVar(&backendName, "backend", "", "storage backend (overrides config)")
	flagSet.StringVar(&logLevel, "log-level", "", "debug, info, warn or error (overrides config)")
	flagSet.Usage = func() { printHelp(stderr, flagSet) }

	if err := flagSet.Parse(args); err != nil {
		return err
	}

	rest := flagSet.Args()
	if len(rest) == 0 {
		printHelp(stderr, flagSet)
		return errors.New("no command given")
	}

	cmd, ok := commands[rest[0]]
	if !ok {
		return fmt.Errorf("unknown command %q", rest[0])
	}

	cfg := config.Default()
	if configFile != "" {
		loaded, err := config.Load(configFile)
		if err != nil {
			return err
		}
		cfg = loaded
	}
	if backendName != "" {
		cfg.Backend = backendName
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger, err := newLogger(cfg.Log, stderr)
	if err != nil {
		return err
	}

	backend, err := safeio.Open(cfg.Backend, cfg.BackendConfig)
	if err != nil {
		return fmt.Errorf("opening %s backend: %w", cfg.Backend, err)
	}
	defer func() {
		if closeErr := backend.Close(); closeErr != nil {
			logger.Warn("closing backend", "backend", cfg.Backend, "error", closeErr)
		}
	}()

	a := &app{
		cfg:     cfg,
		backend: backend,
		logger:  logger.With("backend", cfg.Backend),
		stdout:  stdout,
	}
	return cmd(ctx, a, rest[1:])
}

func newLogger(lc config.LogConfig, w io.Writer) (*slog.Logger, error) {
	level, err := config.ParseLogLevel(lc.Level)
	if err != nil {
		return nil, err
	}
	opts := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(lc.Format, "json") {
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	}
	return slog.New(slog.NewTextHandler(w, opts)), nil
}

func printHelp(w io.Writer, flagSet *pflag.FlagSet) {
	fmt.Fprintf(w, `safeio - resilient file utilities

Usage:
  safeio [flags] <command> [command flags] [args]

Commands:
  compress [--codec c] [--level l] <in> [out]   compress a file
  decompress [--codec c|auto] <in> [out]        decompress a file
  read [--attempts n] [--delay d] [--hash h] <path>
                                                read a file with retries
  copy [--to backend] [--overwrite] [--hash h] <src> <dst>
                                                copy a file without replacing others
  name [--multi-digit] <path>                   print a free name for path
  chars                                         list forbidden path characters

Backends: %s
Codecs:   %s

Flags:
`, strings.Join(safeio.Backends(), ", "), strings.Join(compress.Codecs(), ", "))
	flagSet.SetOutput(w)
	flagSet.PrintDefaults()
}

func runCompress(ctx context.Context, a *app, args []string) error {
	flagSet := pflag.NewFlagSet("compress", pflag.ContinueOnError)
	codecName := flagSet.String("codec", a.cfg.Compression.Codec, "codec name")
	levelName := flagSet.String("level", a.cfg.Compression.Level, "optimal, fastest, none or smallest")
	if err := flagSet.Parse(args); err != nil {
		return err
	}
	in, out, err := inOut(flagSet.Args())
	if err != nil {
		return err
	}

	codec, err := compress.Lookup(*codecName)
	if err != nil {
		return err
	}
	level, err := compress.ParseLevel(*levelName)
	if err != nil {
		return err
	}

	data, err := a.read(ctx, in)
	if err != nil {
		return err
	}

	compressed, err := codec.Compress(bytes.NewReader(data), level)
	if err != nil {
		return fmt.Errorf("compressing %s: %w", in, err)
	}

	if out == "" {
		out = in + codec.Extension()
	}
	written, err := a.writeUnique(ctx, out, compressed)
	if err != nil {
		return err
	}

	a.logger.Info("compressed", "in", in, "out", written, "codec", codec.Name(),
		"level", level, "in_bytes", len(data), "out_bytes", compressed.Size())
	_, err = fmt.Fprintln(a.stdout, written)
	return err
}

func runDecompress(ctx context.Context, a *app, args []string) error {
	flagSet := pflag.NewFlagSet("decompress", pflag.ContinueOnError)
	codecName := flagSet.String("codec", "auto", "codec name, or auto to detect")
	if err := flagSet.Parse(args); err != nil {
		return err
	}
	in, out, err := inOut(flagSet.Args())
	if err != nil {
		return err
	}

	data, err := a.read(ctx, in)
	if err != nil {
		return err
	}

	var (
		plain *bytes.Reader
		codec compress.Codec
	)
	if *codecName == "auto" {
		plain, codec, err = compress.DecompressAuto(bytes.NewReader(data))
	} else {
		codec, err = compress.Lookup(*codecName)
		if err == nil {
			plain, err = codec.Decompress(bytes.NewReader(data))
		}
	}
	if compress.IsNotCompressed(err) {
		return fmt.Errorf("%s is not compressed: %w", in, err)
	}
	if err != nil {
		return fmt.Errorf("decompressing %s: %w", in, err)
	}

	if out == "" {
		out = decompressedName(in, codec)
	}
	written, err := a.writeUnique(ctx, out, plain)
	if err != nil {
		return err
	}

	a.logger.Info("decompressed", "in", in, "out", written, "codec", codec.Name(), "out_bytes", plain.Size())
	_, err = fmt.Fprintln(a.stdout, written)
	return err
}

// decompressedName strips the codec's extension from in, or appends ".out"
// when in does not carry it.
func decompressedName(in string, codec compress.Codec) string {
	if strings.HasSuffix(strings.ToLower(in), codec.Extension()) {
		if stem, err := safeio.PathWithoutExt(in); err == nil && safeio.IsFilePath(stem) {
			return stem
		}
	}
	return in + ".out"
}

func runRead(ctx context.Context, a *app, args []string) error {
	flagSet := pflag.NewFlagSet("read", pflag.ContinueOnError)
	attempts := flagSet.Int("attempts", a.cfg.Retry.MaxAttempts, "maximum read attempts")
	delay := flagSet.Duration("delay", a.cfg.Retry.Delay, "pause after a recoverable failure")
	hashName := flagSet.String("hash", string(safeio.HashSHA256), "digest to print")
	if err := flagSet.Parse(args); err != nil {
		return err
	}
	if flagSet.NArg() != 1 {
		return errors.New("read takes exactly one path")
	}
	hashType, err := safeio.ParseHashType(*hashName)
	if err != nil {
		return err
	}

	p := flagSet.Arg(0)
	data, err := safeio.ReadWithRetry(ctx, a.backend, p,
		safeio.WithMaxAttempts(*attempts),
		safeio.WithDelay(*delay),
		safeio.WithLogger(a.logger),
	)
	if err != nil {
		return err
	}

	_, err = fmt.Fprintf(a.stdout, "%s\t%d\t%s:%s\n", p, len(data), hashType, safeio.HashBytes(data, hashType))
	return err
}

func runCopy(ctx context.Context, a *app, args []string) error {
	flagSet := pflag.NewFlagSet("copy", pflag.ContinueOnError)
	to := flagSet.String("to", "", "destination backend with default settings (default: the source backend)")
	overwrite := flagSet.Bool("overwrite", false, "replace dst if it exists")
	hashName := flagSet.String("hash", string(safeio.HashSHA256), "digest to print")
	if err := flagSet.Parse(args); err != nil {
		return err
	}
	if flagSet.NArg() != 2 {
		return errors.New("copy takes <src> <dst>")
	}
	hashType, err := safeio.ParseHashType(*hashName)
	if err != nil {
		return err
	}

	dst := a.backend
	if *to != "" && *to != a.cfg.Backend {
		dst, err = safeio.Open(*to, nil)
		if err != nil {
			return fmt.Errorf("opening %s backend: %w", *to, err)
		}
		defer func() {
			if closeErr := dst.Close(); closeErr != nil {
				a.logger.Warn("closing backend", "backend", *to, "error", closeErr)
			}
		}()
	}

	opts := []safeio.CopyOption{
		safeio.WithRetryOptions(append(a.cfg.Retry.RetryOptions(), safeio.WithLogger(a.logger))...),
		safeio.WithHash(hashType),
	}
	if *overwrite {
		opts = append(opts, safeio.WithOverwrite())
	}

	res, err := safeio.CopyFile(ctx, a.backend, flagSet.Arg(0), dst, flagSet.Arg(1), opts...)
	if err != nil {
		return err
	}

	a.logger.Info("copied", "src", flagSet.Arg(0), "dst", res.Path, "bytes", res.Size)
	_, err = fmt.Fprintf(a.stdout, "%s\t%d\t%s:%s\n", res.Path, res.Size, hashType, res.Hash)
	return err
}

func runName(ctx context.Context, a *app, args []string) error {
	flagSet := pflag.NewFlagSet("name", pflag.ContinueOnError)
	multiDigit := flagSet.Bool("multi-digit", false, "resume numbering from suffixes of any length")
	if err := flagSet.Parse(args); err != nil {
		return err
	}
	if flagSet.NArg() != 1 {
		return errors.New("name takes exactly one path")
	}

	var opts []safeio.NameOption
	if *multiDigit {
		opts = append(opts, safeio.WithMultiDigitSuffix())
	}

	name, err := safeio.FindAvailableName(ctx, a.backend, flagSet.Arg(0), opts...)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(a.stdout, name)
	return err
}

func runChars(_ context.Context, a *app, args []string) error {
	if len(args) != 0 {
		return errors.New("chars takes no arguments")
	}
	quoted := make([]string, 0, len(safeio.ForbiddenChars()))
	for _, r := range safeio.ForbiddenChars() {
		quoted = append(quoted, strconv.QuoteRune(r))
	}
	_, err := fmt.Fprintln(a.stdout, strings.Join(quoted, " "))
	return err
}

func inOut(args []string) (string, string, error) {
	switch len(args) {
	case 1:
		return args[0], "", nil
	case 2:
		return args[0], args[1], nil
	default:
		return "", "", errors.New("expected <in> [out]")
	}
}

// read loads a whole file with the configured retry policy.
func (a *app) read(ctx context.Context, p string) ([]byte, error) {
	opts := append(a.cfg.Retry.RetryOptions(), safeio.WithLogger(a.logger))
	return safeio.ReadWithRetry(ctx, a.backend, p, opts...)
}

// writeUnique writes r to a free name derived from p and returns that name.
func (a *app) writeUnique(ctx context.Context, p string, r io.Reader) (string, error) {
	name, err := safeio.FindAvailableName(ctx, a.backend, p)
	if err != nil {
		return "", err
	}

	if _, err := safeio.WriteFile(ctx, a.backend, name, r); err != nil {
		return "", err
	}
	return name, nil
}
