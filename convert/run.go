package convert

import (
	"archive/zip"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime/debug"
	"sort"
	"strings"
	"time"

	"github.com/maruel/natural"
	cli "github.com/urfave/cli/v3"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"docgen/archive"
	"docgen/state"
	"docgen/variables"
)

// processor carries per run settings shared by all jobs.
type processor struct {
	dst     string
	extra   variables.Variables
	created time.Time
	log     *zap.Logger
	// written holds outputs produced by this run, they are never overwritten
	// even when overwriting is allowed.
	written map[string]bool
}

func Run(ctx context.Context, cmd *cli.Command) (err error) {
	if err := ctx.Err(); err != nil {
		return err
	}

	env := state.EnvFromContext(ctx)
	log := env.Log.Named("generate")

	src := cmd.Args().Get(0)
	if len(src) == 0 {
		return errors.New("no input source has been specified")
	}
	src, err = filepath.Abs(src)
	if err != nil {
		return err
	}

	dst := cmd.Args().Get(1)
	if len(dst) == 0 {
		if dst, err = os.Getwd(); err != nil {
			return fmt.Errorf("unable to get working directory: %w", err)
		}
	}
	if dst, err = filepath.Abs(dst); err != nil {
		return err
	}
	if cmd.Args().Len() > 2 {
		log.Warn("Mailformed command line, too many destinations", zap.Strings("ignoring", cmd.Args().Slice()[2:]))
	}

	extra, err := parseVars(cmd.StringSlice("var"))
	if err != nil {
		return err
	}

	env.NoDirs, env.Overwrite = cmd.Bool("nodirs"), cmd.Bool("overwrite")

	p := &processor{dst: dst, extra: extra, log: log}
	if cmd.Bool("stamp") {
		p.created = time.Now().UTC().Truncate(time.Second)
	}

	log.Info("Processing starting", zap.String("source", src), zap.String("destination", dst))
	defer func(start time.Time) {
		log.Info("Processing completed", zap.Duration("elapsed", time.Since(start)))
	}(time.Now())

	return p.process(ctx, src)
}

// parseVars turns "name=value" pairs into variables, values are classified
// the same way YAML scalars are.
func parseVars(pairs []string) (variables.Variables, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	m := make(map[string]string, len(pairs))
	for _, pair := range pairs {
		name, value, ok := strings.Cut(pair, "=")
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			return nil, fmt.Errorf("bad variable %q, expected name=value", pair)
		}
		m[name] = value
	}
	return variables.FromStrings(m), nil
}

// process determines the input type (directory, archive, or single job file)
// and processes accordingly. Path may continue inside an archive.
func (p *processor) process(ctx context.Context, src string) error {
	p.written = make(map[string]bool)

	var head, tail string
	for head = src; len(head) != 0; head, tail = filepath.Split(head) {
		if err := ctx.Err(); err != nil {
			return err
		}

		head = strings.TrimSuffix(head, string(filepath.Separator))

		fi, err := os.Stat(head)
		if err != nil {
			// does not exists - probably path in archive
			continue
		}

		if fi.Mode().IsDir() {
			if len(tail) != 0 {
				// directory cannot have tail - it would be simple file
				return fmt.Errorf("input source was not found (%s) => (%s)", head, strings.TrimPrefix(src, head))
			}
			if err := p.processDir(ctx, head); err != nil {
				return fmt.Errorf("unable to process directory: %w", err)
			}
			break
		}

		if !fi.Mode().IsRegular() {
			return fmt.Errorf("unexpected path mode for (%s) => (%s)", head, strings.TrimPrefix(src, head))
		}

		arc, err := isArchiveFile(head)
		if err != nil {
			// checking format - but cannot open target file
			return fmt.Errorf("unable to check archive type: %w", err)
		}
		if arc {
			// we need to look inside to see if path makes sense
			tail = strings.TrimPrefix(strings.TrimPrefix(src, head), string(filepath.Separator))
			if err := p.processArchive(ctx, head, filepath.ToSlash(tail), ""); err != nil {
				return fmt.Errorf("unable to process archive: %w", err)
			}
			break
		}

		if isJobFile(head) && len(tail) == 0 {
			return p.processFile(ctx, head, filepath.Base(head))
		}
		return fmt.Errorf("input was not recognized as job file (%s)", head)
	}
	if len(head) == 0 {
		return fmt.Errorf("input source was not found (%s)", src)
	}
	return nil
}

// processDir collects job files and archives under dir and processes them in
// natural name order.
func (p *processor) processDir(ctx context.Context, dir string) error {
	var paths []string
	err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err != nil {
			p.log.Warn("Skipping path", zap.String("path", path), zap.Error(err))
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}
		if isJobFile(path) {
			paths = append(paths, path)
			return nil
		}
		arc, err := isArchiveFile(path)
		if err != nil {
			p.log.Warn("Skipping file", zap.String("file", path), zap.Error(err))
			return nil
		}
		if arc {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return err
	}
	if len(paths) == 0 {
		p.log.Debug("Nothing to process", zap.String("dir", dir))
		return nil
	}
	sort.Sort(natural.StringSlice(paths))

	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return err
		}
		rel := strings.TrimPrefix(strings.TrimPrefix(path, dir), string(filepath.Separator))
		if !isJobFile(path) {
			if err := p.processArchive(ctx, path, "", filepath.Dir(rel)); err != nil {
				p.log.Error("Unable to process archive", zap.String("file", path), zap.Error(err))
			}
			continue
		}
		if err := p.processFile(ctx, path, rel); err != nil {
			if ctx.Err() != nil {
				return err
			}
			p.log.Error("Unable to process file", zap.String("file", path), zap.Error(err))
		}
	}
	return nil
}

// processArchive walks job files inside archive under "pathIn". Output
// location is relative to "pathOut".
func (p *processor) processArchive(ctx context.Context, path, pathIn, pathOut string) (err error) {
	count := 0
	defer func() {
		if err == nil && count == 0 {
			p.log.Debug("Nothing to process", zap.String("archive", path))
		}
	}()

	return archive.Walk(path, pathIn, func(archive string, f *zip.File, err error) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err != nil {
			p.log.Warn("Skipping file in archive",
				zap.String("archive", archive), zap.String("path", f.Name), zap.Error(err))
			return nil
		}
		if !isJobFile(f.Name) {
			p.log.Debug("Skipping file, not recognized as job", zap.String("archive", archive), zap.String("file", f.Name))
			return nil
		}

		count++

		r, err := f.Open()
		if err != nil {
			p.log.Error("Unable to process file in archive",
				zap.String("archive", archive), zap.String("file", f.Name), zap.Error(err))
			return nil
		}
		defer r.Close()

		if err := p.processJobs(ctx, r, filepath.Join(pathOut, filepath.FromSlash(f.Name))); err != nil {
			if ctx.Err() != nil {
				return err
			}
			p.log.Error("Unable to process file in archive",
				zap.String("archive", archive), zap.String("file", f.Name), zap.Error(err))
		}
		return nil
	})
}

func (p *processor) processFile(ctx context.Context, path, src string) error {
	file, err := os.Open(path)
	if err != nil {
		return err
	}
	defer file.Close()
	return p.processJobs(ctx, file, src)
}

// processJobs decodes jobs from r and generates every one of them. "src" is
// relative path of job file used for output placement and naming. Unnamed
// jobs of a multi-job file are numbered. Failed job does not stop the rest.
func (p *processor) processJobs(ctx context.Context, r io.Reader, src string) error {
	jobs, err := decodeJobs(r)
	if err != nil {
		return fmt.Errorf("unable to parse job file (%s): %w", src, err)
	}
	var (
		errs   error
		failed int
	)
	if len(jobs) > 1 {
		base := strings.TrimSuffix(filepath.Base(src), filepath.Ext(src))
		for i := range jobs {
			if strings.TrimSpace(jobs[i].Name) == "" {
				jobs[i].Name = fmt.Sprintf("%s-%d", base, i+1)
			}
		}
	}
	for i := range jobs {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := p.processJob(ctx, &jobs[i], src); err != nil {
			if ctx.Err() != nil {
				return err
			}
			p.log.Error("Unable to generate document", zap.String("from", src), zap.String("job", jobs[i].Name), zap.Error(err))
			errs = multierr.Append(errs, err)
			failed++
		}
	}
	if failed == len(jobs) {
		return errs
	}
	return nil
}

// processJob generates single document. "src" is part of the source path
// (always including file name) relative to the original path.
func (p *processor) processJob(ctx context.Context, j *Job, src string) (rerr error) {
	env := state.EnvFromContext(ctx)
	log := p.log.With(zap.String("job", j.Name))

	var outputName string

	log.Info("Generation starting", zap.String("from", src))
	defer func(start time.Time) {
		// NOTE: image decoding libraries may panic on malformed input, when
		// multiple jobs are being processed we do not want to stop.
		if r := recover(); r != nil {
			log.Error("Generation ended with panic",
				zap.Any("panic", r), zap.Duration("elapsed", time.Since(start)), zap.String("to", outputName), zap.ByteString("stack", debug.Stack()))
			rerr = fmt.Errorf("generation panic: %v", r)
		} else if rerr == nil {
			log.Info("Generation completed", zap.Duration("elapsed", time.Since(start)), zap.String("to", outputName))
		}
	}(time.Now())

	vars := j.override(p.extra)

	res, err := Generate(ctx, j.Template, vars, Options{
		Document: &env.Cfg.Document,
		Client:   env.Client,
		Created:  p.created,
		Log:      log,
	})
	if err != nil {
		if env.Rpt != nil {
			env.Rpt.StoreData(fmt.Sprintf("failed-%s.txt", reportName(j, src)), []byte(dump(j, vars, nil)))
		}
		return fmt.Errorf("unable to generate document: %w", err)
	}
	for _, w := range res.Warnings {
		log.Warn("Document generated with problems",
			zap.Stringer("kind", w.Kind), zap.Stringer("section", w.Section), zap.String("detail", w.Detail))
	}

	// Determine output file name and path based on input and configuration.
	outputName = buildOutputPath(j, src, p.dst, env)

	if p.written[outputName] {
		return fmt.Errorf("output file was already produced by another job: %s", outputName)
	}

	// Check if output file already exists
	if _, err := os.Stat(outputName); err == nil {
		if !env.Overwrite {
			return fmt.Errorf("output file already exists: %s", outputName)
		}
		log.Warn("Overwriting existing file", zap.String("file", outputName))
		if err = os.Remove(outputName); err != nil {
			return err
		}
	} else if !os.IsNotExist(err) {
		return err
	} else if err := os.MkdirAll(filepath.Dir(outputName), 0755); err != nil {
		return fmt.Errorf("unable to create output directory: %w", err)
	}

	if err := os.WriteFile(outputName, res.Data, 0644); err != nil {
		return fmt.Errorf("unable to write output: %w", err)
	}
	if p.written == nil {
		p.written = make(map[string]bool)
	}
	p.written[outputName] = true

	// Store generation result for debugging
	if env.Rpt != nil {
		name := reportName(j, src)
		env.Rpt.Store(fmt.Sprintf("result-%s.docx", name), outputName)
		env.Rpt.StoreData(fmt.Sprintf("dump-%s.txt", name), []byte(dump(j, vars, res)))
	}
	return nil
}

// reportName makes unique enough entry name for the report archive.
func reportName(j *Job, src string) string {
	name := strings.TrimSuffix(filepath.ToSlash(src), filepath.Ext(src))
	name = strings.ReplaceAll(name, "/", "_")
	if j.Name != "" {
		name += "-" + j.Name
	}
	return name
}
