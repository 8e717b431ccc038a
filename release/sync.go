/*
Copyright 2026 The Flux authors

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package release publishes a prepared directory as the assets of a GitHub
// release.
package release

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/go-logr/logr"
	gh "github.com/google/go-github/v82/github"
	"golang.org/x/sync/errgroup"

	"github.com/fluxcd/argh/github"
	"github.com/fluxcd/argh/metadata"
)

const pageSize = 100

// Record is a release as returned by the API. Immutable is nil when the
// server doesn't report it.
type Record struct {
	*gh.RepositoryRelease
	Immutable *bool `json:"immutable,omitempty"`
}

// Mutable reports whether the assets of the release may be replaced:
// drafts, pre-releases and releases explicitly marked as not immutable.
func (r *Record) Mutable() bool {
	if r.Immutable != nil && *r.Immutable {
		return false
	}
	return r.GetDraft() || r.GetPrerelease() || r.Immutable != nil
}

// SyncResult summarizes a Sync run. Failures of single assets are reported
// here rather than as the error of Sync.
type SyncResult struct {
	Release      *Record
	Created      bool
	Deleted      []AssetOutcome
	DeleteFailed []AssetOutcome
	Uploaded     []AssetOutcome
	UploadFailed []AssetOutcome
	RolledBack   []AssetOutcome
}

// Err aggregates the failed asset operations.
func (r *SyncResult) Err() error {
	var errs []error
	for _, o := range r.DeleteFailed {
		errs = append(errs, fmt.Errorf("failed to delete asset '%s': %w", o.Name, o.Err))
	}
	for _, o := range r.UploadFailed {
		errs = append(errs, fmt.Errorf("failed to upload asset '%s': %w", o.Name, o.Err))
	}
	return errors.Join(errs...)
}

// Syncer publishes prepared directories to the releases of a repository.
type Syncer struct {
	client *gh.Client
	log    logr.Logger
}

// NewSyncer returns a Syncer using the API client.
func NewSyncer(client *gh.Client, log logr.Logger) *Syncer {
	return &Syncer{client: client, log: log}
}

type asset struct {
	name string
	path string
	size int64
}

// Sync finds or creates the release tagged with version, removes the stale
// assets of the modules being republished when the release is mutable, and
// uploads every file of preparedDir as an asset.
func (s *Syncer) Sync(ctx context.Context, preparedDir, repository, version string, opts ...Option) (*SyncResult, error) {
	o := makeOptions(opts...)
	owner, repo, err := github.SplitRepository(repository)
	if err != nil {
		return nil, err
	}
	tag := o.tagPrefix + version
	log := s.log.WithValues("repository", repository, "tag", tag)

	batch, err := scanAssets(preparedDir)
	if err != nil {
		return nil, err
	}

	result := &SyncResult{}
	rel, err := s.FindRelease(ctx, owner, repo, tag)
	if err != nil {
		return nil, err
	}

	var existing []*gh.ReleaseAsset
	switch {
	case rel == nil && !o.createIfMissing:
		return nil, &ReleaseMissingError{Repository: repository, Tag: tag}
	case rel == nil && o.skipUpload:
		log.Info("release not found, skipping creation")
	case rel == nil:
		created, _, err := s.client.Repositories.CreateRelease(ctx, owner, repo, &gh.RepositoryRelease{
			TagName:    gh.Ptr(tag),
			Name:       gh.Ptr(tag),
			Draft:      gh.Ptr(true),
			Prerelease: gh.Ptr(metadata.IsPrerelease(version)),
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create release '%s': %w", tag, err)
		}
		rel = &Record{RepositoryRelease: created}
		result.Created = true
		log.Info("created draft release", "id", rel.GetID())
	default:
		existing, err = s.listAssets(ctx, owner, repo, rel.GetID())
		if err != nil {
			return nil, err
		}
	}
	result.Release = rel

	var stale []*gh.ReleaseAsset
	mutable := rel != nil && rel.Mutable()
	if mutable {
		stale = staleAssets(existing)
	}

	if err := s.preflight(ctx, log, o, tag, rel, batch, existing, stale); err != nil {
		return nil, err
	}
	if o.skipUpload {
		log.Info("skipping upload", "assets", len(batch))
		return result, nil
	}

	if len(stale) > 0 {
		log.Info("removing assets of republished modules", "assets", len(stale))
		result.Deleted, result.DeleteFailed = s.deleteAssets(ctx, log, o, owner, repo, stale)
	}

	s.upload(ctx, log, o, owner, repo, rel.GetID(), batch, result)

	if len(result.UploadFailed) > 0 && o.failurePolicy == RollbackOnFailure && len(result.Uploaded) > 0 {
		log.Info("rolling back uploaded assets", "assets", len(result.Uploaded))
		var uploaded []*gh.ReleaseAsset
		for _, u := range result.Uploaded {
			uploaded = append(uploaded, &gh.ReleaseAsset{ID: gh.Ptr(u.ID), Name: gh.Ptr(u.Name)})
		}
		var failed []AssetOutcome
		result.RolledBack, failed = s.deleteAssets(ctx, log, o, owner, repo, uploaded)
		result.DeleteFailed = append(result.DeleteFailed, failed...)
	}

	log.Info("release synchronized",
		"uploaded", len(result.Uploaded), "uploadFailed", len(result.UploadFailed),
		"deleted", len(result.Deleted), "deleteFailed", len(result.DeleteFailed))
	return result, nil
}

// FindRelease returns the release with the exact tag, or nil. Releases are
// listed page by page, following the link to the next page.
func (s *Syncer) FindRelease(ctx context.Context, owner, repo, tag string) (*Record, error) {
	page := 1
	for {
		u := fmt.Sprintf("repos/%s/%s/releases?per_page=%d&page=%d", owner, repo, pageSize, page)
		req, err := s.client.NewRequest(http.MethodGet, u, nil)
		if err != nil {
			return nil, err
		}
		var releases []*Record
		resp, err := s.client.Do(ctx, req, &releases)
		if err != nil {
			return nil, fmt.Errorf("failed to list releases of '%s/%s': %w", owner, repo, err)
		}
		for _, r := range releases {
			if r.RepositoryRelease != nil && r.GetTagName() == tag {
				return r, nil
			}
		}
		if resp.NextPage == 0 {
			return nil, nil
		}
		page = resp.NextPage
	}
}

func (s *Syncer) listAssets(ctx context.Context, owner, repo string, id int64) ([]*gh.ReleaseAsset, error) {
	var all []*gh.ReleaseAsset
	opts := &gh.ListOptions{PerPage: pageSize}
	for {
		assets, resp, err := s.client.Repositories.ListReleaseAssets(ctx, owner, repo, id, opts)
		if err != nil {
			return nil, fmt.Errorf("failed to list assets of release %d: %w", id, err)
		}
		all = append(all, assets...)
		if resp.NextPage == 0 {
			return all, nil
		}
		opts.Page = resp.NextPage
	}
}

// staleAssets returns the assets sharing a name prefix with a module
// descriptor attached to the release.
func staleAssets(existing []*gh.ReleaseAsset) []*gh.ReleaseAsset {
	var prefixes []string
	for _, a := range existing {
		if prefix, ok := strings.CutSuffix(a.GetName(), "."+metadata.FileExtension); ok {
			prefixes = append(prefixes, prefix)
		}
	}
	var stale []*gh.ReleaseAsset
	for _, a := range existing {
		for _, prefix := range prefixes {
			if strings.HasPrefix(a.GetName(), prefix) {
				stale = append(stale, a)
				break
			}
		}
	}
	return stale
}

// deleteAssets deletes each asset independently.
func (s *Syncer) deleteAssets(ctx context.Context, log logr.Logger, o *options, owner, repo string,
	assets []*gh.ReleaseAsset) (deleted, failed []AssetOutcome) {
	var mu sync.Mutex
	var eg errgroup.Group
	eg.SetLimit(o.concurrency)
	for _, a := range assets {
		eg.Go(func() error {
			out := AssetOutcome{Name: a.GetName(), ID: a.GetID()}
			_, out.Err = s.client.Repositories.DeleteReleaseAsset(ctx, owner, repo, a.GetID())

			mu.Lock()
			defer mu.Unlock()
			if out.Err != nil {
				log.Error(out.Err, "failed to delete asset", "asset", out.Name)
				failed = append(failed, out)
				return nil
			}
			log.V(1).Info("deleted asset", "asset", out.Name)
			deleted = append(deleted, out)
			return nil
		})
	}
	_ = eg.Wait()
	sortOutcomes(deleted)
	sortOutcomes(failed)
	return deleted, failed
}

// upload uploads each asset of the batch independently.
func (s *Syncer) upload(ctx context.Context, log logr.Logger, o *options, owner, repo string, id int64,
	batch []asset, result *SyncResult) {
	var mu sync.Mutex
	var eg errgroup.Group
	eg.SetLimit(o.concurrency)
	for _, a := range batch {
		eg.Go(func() error {
			out := AssetOutcome{Name: a.name}
			uploaded, err := s.uploadAsset(ctx, owner, repo, id, a)
			if err != nil {
				out.Err = err
			} else {
				out.ID = uploaded.GetID()
			}

			mu.Lock()
			defer mu.Unlock()
			if out.Err != nil {
				log.Error(out.Err, "failed to upload asset", "asset", out.Name)
				result.UploadFailed = append(result.UploadFailed, out)
				return nil
			}
			log.V(1).Info("uploaded asset", "asset", out.Name, "size", a.size)
			result.Uploaded = append(result.Uploaded, out)
			return nil
		})
	}
	_ = eg.Wait()
	sortOutcomes(result.Uploaded)
	sortOutcomes(result.UploadFailed)
}

func (s *Syncer) uploadAsset(ctx context.Context, owner, repo string, id int64, a asset) (*gh.ReleaseAsset, error) {
	f, err := os.Open(a.path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	uploaded, _, err := s.client.Repositories.UploadReleaseAsset(ctx, owner, repo, id, &gh.UploadOptions{Name: a.name}, f)
	return uploaded, err
}

// scanAssets returns the regular files of dir sorted by name.
func scanAssets(dir string) ([]asset, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read prepared directory: %w", err)
	}
	var batch []asset
	for _, e := range entries {
		if !e.Type().IsRegular() {
			continue
		}
		fi, err := e.Info()
		if err != nil {
			return nil, err
		}
		batch = append(batch, asset{name: e.Name(), path: filepath.Join(dir, e.Name()), size: fi.Size()})
	}
	return batch, nil
}

func sortOutcomes(outcomes []AssetOutcome) {
	sort.Slice(outcomes, func(i, j int) bool {
		return outcomes[i].Name < outcomes[j].Name
	})
}
