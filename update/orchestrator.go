// Package update checks a remote metadata document for newer script bundles
// and native packages, downloads them and hands them over for installation.
package update

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/go-multierror"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

// Config is the orchestrator configuration supplied by the host application.
type Config struct {
	// MetadataURL is the remote metadata document.
	MetadataURL string
	// Frequency limits how often MetadataURL is fetched.
	Frequency Frequency
	// ShowProgress enables Notifier messages.
	ShowProgress bool
	// LocalMetadataAssetName names the packaged fallback metadata;
	// defaults to metadata.<platform>.json.
	LocalMetadataAssetName string
	// Platform defaults to android.
	Platform Platform
}

// Option configures the collaborators of an Orchestrator.
type Option func(*Orchestrator)

// WithStore sets the persistent state store. Required.
func WithStore(s Store) Option {
	return func(o *Orchestrator) { o.store = s }
}

// WithDownloader sets the artifact downloader. Required.
func WithDownloader(d Downloader) Option {
	return func(o *Orchestrator) { o.downloader = d }
}

// WithFetcher replaces the default HTTP metadata fetcher.
func WithFetcher(f Fetcher) Option {
	return func(o *Orchestrator) { o.fetcher = f }
}

// WithNotifier sets where progress messages go.
func WithNotifier(n Notifier) Option {
	return func(o *Orchestrator) { o.notifier = n }
}

// WithInstaller sets the collaborator receiving downloaded packages.
func WithInstaller(i Installer) Option {
	return func(o *Orchestrator) { o.installer = i }
}

// WithPackageVersion sets the source of the installed package version.
func WithPackageVersion(p PackageVersionProvider) Option {
	return func(o *Orchestrator) { o.versions = p }
}

// WithWakeLocker sets the wake lock held by background operations.
func WithWakeLocker(w WakeLocker) Option {
	return func(o *Orchestrator) { o.wakeLock = w }
}

// WithAssets sets the file system holding the packaged fallback metadata.
func WithAssets(fsys fs.FS) Option {
	return func(o *Orchestrator) { o.assets = fsys }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) { o.now = now }
}

// WithLogger sets the log entry the orchestrator logs through.
func WithLogger(entry *log.Entry) Option {
	return func(o *Orchestrator) { o.log = entry }
}

// Orchestrator decides when to check for updates, compares versions and
// drives downloads and installation.
type Orchestrator struct {
	cfg Config

	store      Store
	fetcher    Fetcher
	downloader Downloader
	notifier   Notifier
	installer  Installer
	versions   PackageVersionProvider
	wakeLock   WakeLocker
	assets     fs.FS
	now        func() time.Time
	log        *log.Entry

	// serializes check cycles
	checkMu sync.Mutex
	// de-duplicates downloads per category
	downloads singleflight.Group

	mu       sync.RWMutex
	metadata *Metadata
	status   Status
}

// New creates an Orchestrator. A store and a downloader must be supplied.
func New(cfg Config, opts ...Option) (*Orchestrator, error) {
	if cfg.MetadataURL == "" {
		return nil, errors.New("metadata URL is required")
	}
	if cfg.Platform == "" {
		cfg.Platform = DefaultPlatform
	}
	if cfg.LocalMetadataAssetName == "" {
		cfg.LocalMetadataAssetName = cfg.Platform.MetadataAssetName()
	}

	o := &Orchestrator{
		cfg:      cfg,
		fetcher:  NewHTTPFetcher(nil, "dev"),
		wakeLock: noopWakeLocker{},
		now:      time.Now,
		log:      log.WithField("component", "appupdate"),
	}
	for _, opt := range opts {
		opt(o)
	}

	if o.store == nil {
		return nil, errors.New("state store is required")
	}
	if o.downloader == nil {
		return nil, errors.New("downloader is required")
	}

	return o, nil
}

// Config returns the effective configuration.
func (o *Orchestrator) Config() Config {
	return o.cfg
}

// Status returns the current state machine position.
func (o *Orchestrator) Status() Status {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.status
}

// Metadata returns a copy of the metadata of the last successful check, or
// nil if the last check failed or none ran yet.
func (o *Orchestrator) Metadata() *Metadata {
	o.mu.RLock()
	defer o.mu.RUnlock()

	if o.metadata == nil {
		return nil
	}
	md := *o.metadata
	return &md
}

func (o *Orchestrator) setMetadata(md *Metadata) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.metadata = md
}

func (o *Orchestrator) setStatus(s Status) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.status = s
}

func (o *Orchestrator) notify(message string) {
	if o.cfg.ShowProgress && o.notifier != nil {
		o.notifier.Show(message)
	}
}

// newTask returns a wake lock tag and a logger for one background operation.
func (o *Orchestrator) newTask(op string) (string, *log.Entry) {
	id := uuid.NewString()
	return "appupdate/" + op + "/" + id, o.log.WithFields(log.Fields{"op": op, "task": id})
}

// ShouldCheck reports whether the frequency policy allows a check at now.
func (o *Orchestrator) ShouldCheck(now time.Time) (bool, error) {
	last, err := o.store.LastCheck()
	if err != nil {
		return false, fmt.Errorf("read last check time: %w", err)
	}
	return o.cfg.Frequency.ShouldCheck(now, last), nil
}

// CheckForUpdates fetches the metadata if the frequency policy allows it and
// reports which artifacts are newer than what is installed. When the policy
// says no, it returns a skipped result without touching the network or the
// store. A failed fetch clears the held metadata and leaves the store as is;
// the last check time is only recorded after a successful fetch.
func (o *Orchestrator) CheckForUpdates(ctx context.Context) (*CheckResult, error) {
	o.checkMu.Lock()
	defer o.checkMu.Unlock()

	now := o.now()
	due, err := o.ShouldCheck(now)
	if err != nil {
		return nil, err
	}
	if !due {
		o.log.Debugf("skipping update check, frequency is %s", o.cfg.Frequency)
		return &CheckResult{Skipped: true}, nil
	}

	tag, l := o.newTask("check")
	var result *CheckResult
	err = withWakeLock(o.wakeLock, tag, func() error {
		var err error
		result, err = o.check(ctx, now, l)
		return err
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (o *Orchestrator) check(ctx context.Context, now time.Time, l *log.Entry) (*CheckResult, error) {
	o.setStatus(StatusChecking)
	o.notify(MsgChecking)

	if _, err := o.CurrentBundleVersion(); err != nil {
		l.Warnf("no local bundle version: %v", err)
	}

	md, err := o.fetcher.Fetch(ctx, o.cfg.MetadataURL)
	if err != nil {
		o.setMetadata(nil)
		o.setStatus(StatusFailed)

		var perr *ParseError
		if errors.As(err, &perr) {
			o.notify(MsgNoMetadata)
		}
		l.Errorf("update check failed: %v", err)
		return nil, err
	}
	o.setMetadata(md)

	if err := o.store.SetLastCheck(now); err != nil {
		l.Warnf("failed to record update check time: %v", err)
	}

	bundle, err := o.ShouldUpdateBundle()
	if err != nil {
		l.Warnf("failed to compare bundle versions: %v", err)
	}
	pkg, err := o.ShouldUpdatePackage()
	switch {
	case errors.Is(err, ErrNoPackageVersion):
		l.Debugf("package updates disabled: %v", err)
	case err != nil:
		l.Warnf("failed to compare package versions: %v", err)
	}

	switch {
	case bundle && pkg:
		o.setStatus(StatusBothAvailable)
	case bundle:
		o.setStatus(StatusBundleUpdateAvailable)
	case pkg:
		o.setStatus(StatusPackageUpdateAvailable)
	default:
		o.setStatus(StatusNoUpdate)
	}

	l.Infof("update check done: bundle %s (update: %t), package %s (update: %t)", md.JSVersion, bundle, md.Version, pkg)

	held := *md
	return &CheckResult{
		BundleUpdateAvailable:  bundle,
		PackageUpdateAvailable: pkg,
		Metadata:               &held,
	}, nil
}

// ShouldUpdateBundle reports whether the held metadata advertises a bundle
// newer than the stored bundle version. With no stored version any
// advertised bundle counts as newer.
func (o *Orchestrator) ShouldUpdateBundle() (bool, error) {
	md := o.Metadata()
	if md == nil || md.JSVersion == "" {
		return false, nil
	}

	stored, ok, err := o.store.BundleVersion()
	if err != nil {
		return false, fmt.Errorf("read stored bundle version: %w", err)
	}
	if !ok {
		return true, nil
	}

	return ParseVersion(stored).IsLessThan(ParseVersion(md.JSVersion)), nil
}

// ShouldUpdatePackage reports whether the held metadata advertises a package
// newer than the installed one.
func (o *Orchestrator) ShouldUpdatePackage() (bool, error) {
	md := o.Metadata()
	if md == nil || md.Version == "" {
		return false, nil
	}
	if o.versions == nil {
		return false, ErrNoPackageVersion
	}

	current, err := o.versions.CurrentVersion()
	if err != nil {
		return false, fmt.Errorf("read installed package version: %w", err)
	}

	return ParseVersion(current).IsLessThan(ParseVersion(md.Version)), nil
}

// CurrentBundleVersion returns the stored bundle version. If none is stored
// it is seeded from the packaged fallback metadata. Errors wrap
// ErrNoLocalVersion when neither source has one.
func (o *Orchestrator) CurrentBundleVersion() (string, error) {
	stored, ok, err := o.store.BundleVersion()
	if err != nil {
		return "", fmt.Errorf("read stored bundle version: %w", err)
	}
	if ok {
		return stored, nil
	}

	if o.assets == nil {
		return "", ErrNoLocalVersion
	}

	md, err := LoadLocalMetadata(o.assets, o.cfg.LocalMetadataAssetName)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrNoLocalVersion, err)
	}
	if md.JSVersion == "" {
		return "", fmt.Errorf("%w: %s has no jsVersion", ErrNoLocalVersion, o.cfg.LocalMetadataAssetName)
	}

	if err := o.store.SetBundleVersion(md.JSVersion); err != nil {
		return "", fmt.Errorf("store seeded bundle version: %w", err)
	}
	o.log.Debugf("seeded bundle version %s from %s", md.JSVersion, o.cfg.LocalMetadataAssetName)

	return md.JSVersion, nil
}

// ApplyBundleUpdate downloads the bundle advertised by the held metadata and
// records its version. It is a no-op when the metadata lacks jsUrl or
// jsVersion. On failure the stored state is unchanged.
func (o *Orchestrator) ApplyBundleUpdate(ctx context.Context) (*ApplyResult, error) {
	md := o.Metadata()
	if !md.HasBundle() {
		o.log.Debugf("no bundle in update metadata, nothing to apply")
		return &ApplyResult{Category: CategoryBundle, Skipped: true}, nil
	}

	return o.apply(ctx, CategoryBundle, md.JSURL, md.JSVersion, md.JSSHA256, func(ctx context.Context, path, version string) error {
		st, err := o.store.Load()
		if err != nil {
			return fmt.Errorf("load update state: %w", err)
		}
		st.BundleVersion = version
		st.AppliedVersion = version
		st.LastCheckTimestamp = o.now().UnixMilli()
		if err := o.store.Save(st); err != nil {
			return fmt.Errorf("save update state: %w", err)
		}
		return nil
	})
}

// ApplyPackageUpdate downloads the package advertised by the held metadata
// and passes it to the Installer. It is a no-op when the metadata lacks url
// or version. The package version is not stored; the installed version is
// always read from the PackageVersionProvider.
func (o *Orchestrator) ApplyPackageUpdate(ctx context.Context) (*ApplyResult, error) {
	md := o.Metadata()
	if !md.HasPackage() {
		o.log.Debugf("no package in update metadata, nothing to apply")
		return &ApplyResult{Category: CategoryPackage, Skipped: true}, nil
	}
	if o.installer == nil {
		return nil, ErrNoInstaller
	}

	return o.apply(ctx, CategoryPackage, md.URL, md.Version, md.SHA256, func(ctx context.Context, path, version string) error {
		if err := o.installer.Install(ctx, path); err != nil {
			return fmt.Errorf("install package %s: %w", version, err)
		}
		return nil
	})
}

// apply downloads one artifact and runs finish on it. Concurrent calls for
// the same category share one download, which runs under the context of the
// first caller. A joined caller stops waiting once its own context is done;
// the first caller waits for its download to unwind.
func (o *Orchestrator) apply(ctx context.Context, category Category, url, version, checksum string,
	finish func(ctx context.Context, path, version string) error) (*ApplyResult, error) {
	leader := make(chan struct{})
	ch := o.downloads.DoChan(string(category), func() (interface{}, error) {
		close(leader)
		tag, l := o.newTask(string(category))

		var result *ApplyResult
		err := withWakeLock(o.wakeLock, tag, func() error {
			o.setStatus(StatusDownloading)
			l.Infof("downloading %s %s from %s", category, version, url)

			path, err := o.downloader.Download(ctx, url, category, checksum)
			if err != nil {
				o.setStatus(StatusFailed)
				o.notify(MsgDownloadError)
				l.Errorf("%s download failed: %v", category, err)
				return err
			}
			o.notify(MsgDownloadSuccess)

			if err := finish(ctx, path, version); err != nil {
				o.setStatus(StatusFailed)
				l.Errorf("%s update failed: %v", category, err)
				return err
			}

			o.setStatus(StatusApplied)
			l.Infof("%s %s applied", category, version)
			result = &ApplyResult{Category: category, Path: path, Version: version}
			return nil
		})
		return result, err
	})

	var r singleflight.Result
	select {
	case r = <-ch:
	case <-ctx.Done():
		select {
		case <-leader:
			r = <-ch
		default:
			o.log.Infof("stopped waiting for %s download: %v", category, ctx.Err())
			return nil, cancelled(ctx.Err())
		}
	}
	if r.Err != nil {
		return nil, r.Err
	}
	res := *r.Val.(*ApplyResult)
	res.Shared = r.Shared
	return &res, nil
}

// ApplyAvailable applies every update res reports as available, bundle and
// package concurrently. Results of the operations that succeeded are
// returned together with the combined errors of those that failed.
func (o *Orchestrator) ApplyAvailable(ctx context.Context, res *CheckResult) ([]*ApplyResult, error) {
	if res == nil || res.Skipped {
		return nil, nil
	}

	var (
		g       errgroup.Group
		results [2]*ApplyResult
		errs    [2]error
	)

	if res.BundleUpdateAvailable {
		g.Go(func() error {
			results[0], errs[0] = o.ApplyBundleUpdate(ctx)
			return errs[0]
		})
	}
	if res.PackageUpdateAvailable {
		g.Go(func() error {
			results[1], errs[1] = o.ApplyPackageUpdate(ctx)
			return errs[1]
		})
	}
	_ = g.Wait()

	var merr *multierror.Error
	var applied []*ApplyResult
	var done bool
	for i := range results {
		if errs[i] != nil {
			merr = multierror.Append(merr, errs[i])
			continue
		}
		if results[i] != nil {
			applied = append(applied, results[i])
			done = done || !results[i].Skipped
		}
	}

	// both applies write the status; settle it once they are done
	switch {
	case merr != nil:
		o.setStatus(StatusFailed)
	case done:
		o.setStatus(StatusApplied)
	}

	return applied, merr.ErrorOrNil()
}

// Reset clears the persisted state and the held metadata.
func (o *Orchestrator) Reset() error {
	o.checkMu.Lock()
	defer o.checkMu.Unlock()

	if err := o.store.Reset(); err != nil {
		return fmt.Errorf("reset update state: %w", err)
	}
	o.setMetadata(nil)
	o.setStatus(StatusIdle)
	return nil
}

// CheckForUpdatesAsync runs CheckForUpdates on its own goroutine.
func (o *Orchestrator) CheckForUpdatesAsync(ctx context.Context) *Task[*CheckResult] {
	return runTask(func() (*CheckResult, error) {
		return o.CheckForUpdates(ctx)
	})
}

// ApplyBundleUpdateAsync runs ApplyBundleUpdate on its own goroutine.
func (o *Orchestrator) ApplyBundleUpdateAsync(ctx context.Context) *Task[*ApplyResult] {
	return runTask(func() (*ApplyResult, error) {
		return o.ApplyBundleUpdate(ctx)
	})
}

// ApplyPackageUpdateAsync runs ApplyPackageUpdate on its own goroutine.
func (o *Orchestrator) ApplyPackageUpdateAsync(ctx context.Context) *Task[*ApplyResult] {
	return runTask(func() (*ApplyResult, error) {
		return o.ApplyPackageUpdate(ctx)
	})
}
