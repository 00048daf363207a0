// Package drive publishes monthly export files to a Google Drive folder tree
// laid out as <parent>/<YYYY>/<file>.
package drive

import (
	"context"
	"fmt"
	"log/slog"
	"mime"
	"os"
	"path/filepath"
	"strings"

	"google.golang.org/api/drive/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"certsync/internal/platform/logger"
	"certsync/internal/product/models"
)

const mimeTypeFolder = "application/vnd.google-apps.folder"

// NewService builds a Drive client from a service-account credentials file.
// Extra options are appended, so callers can redirect the endpoint.
func NewService(ctx context.Context, credentialsFile string, opts ...option.ClientOption) (*drive.Service, error) {
	base := []option.ClientOption{
		option.WithCredentialsFile(credentialsFile),
		option.WithScopes(drive.DriveScope),
	}
	svc, err := drive.NewService(ctx, append(base, opts...)...)
	if err != nil {
		return nil, fmt.Errorf("create drive service: %w", err)
	}
	return svc, nil
}

// Uploaded describes one file placed in Drive.
type Uploaded struct {
	Path     string
	FileID   string
	Replaced bool
}

// UploadResult is the outcome of UploadMonth.
type UploadResult struct {
	Month    models.Month
	FolderID string
	Files    []Uploaded
}

// Uploader writes files beneath a fixed parent folder.
type Uploader struct {
	svc      *drive.Service
	parentID string
	logger   *slog.Logger
}

type Option func(*Uploader)

func WithLogger(l *slog.Logger) Option {
	return func(u *Uploader) {
		if l != nil {
			u.logger = l
		}
	}
}

// New constructs an Uploader rooted at parentID.
func New(svc *drive.Service, parentID string, opts ...Option) *Uploader {
	u := &Uploader{svc: svc, parentID: parentID, logger: logger.Discard()}
	for _, opt := range opts {
		opt(u)
	}
	return u
}

// EnsureFolder returns the id of the child folder called name, creating it
// when absent.
func (u *Uploader) EnsureFolder(ctx context.Context, name string) (string, error) {
	q := fmt.Sprintf("name = '%s' and '%s' in parents and mimeType = '%s' and trashed = false",
		escape(name), escape(u.parentID), mimeTypeFolder)
	id, err := u.findOne(ctx, q)
	if err != nil {
		return "", fmt.Errorf("look up folder %s: %w", name, err)
	}
	if id != "" {
		return id, nil
	}

	folder, err := u.svc.Files.Create(&drive.File{
		Name:     name,
		MimeType: mimeTypeFolder,
		Parents:  []string{u.parentID},
	}).Fields("id").SupportsAllDrives(true).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("create folder %s: %w", name, err)
	}
	u.logger.InfoContext(ctx, "created drive folder", "name", name, "folder_id", folder.Id)
	return folder.Id, nil
}

// Upload places the file at path inside folderID. A file of the same name is
// overwritten in place so links to it stay valid.
func (u *Uploader) Upload(ctx context.Context, folderID, path string) (Uploaded, error) {
	f, err := os.Open(path)
	if err != nil {
		return Uploaded{}, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	name := filepath.Base(path)
	contentType := mime.TypeByExtension(filepath.Ext(name))
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	media := googleapi.ContentType(contentType)

	q := fmt.Sprintf("name = '%s' and '%s' in parents and trashed = false", escape(name), escape(folderID))
	existing, err := u.findOne(ctx, q)
	if err != nil {
		return Uploaded{}, fmt.Errorf("look up %s: %w", name, err)
	}

	if existing != "" {
		file, err := u.svc.Files.Update(existing, &drive.File{}).
			Media(f, media).Fields("id").SupportsAllDrives(true).Context(ctx).Do()
		if err != nil {
			return Uploaded{}, fmt.Errorf("replace %s: %w", name, err)
		}
		return Uploaded{Path: path, FileID: file.Id, Replaced: true}, nil
	}

	file, err := u.svc.Files.Create(&drive.File{Name: name, Parents: []string{folderID}}).
		Media(f, media).Fields("id").SupportsAllDrives(true).Context(ctx).Do()
	if err != nil {
		return Uploaded{}, fmt.Errorf("upload %s: %w", name, err)
	}
	return Uploaded{Path: path, FileID: file.Id}, nil
}

// UploadMonth uploads paths into the year folder of m.
func (u *Uploader) UploadMonth(ctx context.Context, m models.Month, paths ...string) (UploadResult, error) {
	res := UploadResult{Month: m}
	folderID, err := u.EnsureFolder(ctx, m.YearString())
	if err != nil {
		return res, err
	}
	res.FolderID = folderID

	for _, p := range paths {
		up, err := u.Upload(ctx, folderID, p)
		if err != nil {
			return res, err
		}
		res.Files = append(res.Files, up)
		u.logger.InfoContext(ctx, "uploaded export",
			"month", m.String(), "file", filepath.Base(p), "file_id", up.FileID, "replaced", up.Replaced)
	}
	return res, nil
}

func (u *Uploader) findOne(ctx context.Context, q string) (string, error) {
	list, err := u.svc.Files.List().
		Q(q).
		Fields("files(id)").
		PageSize(1).
		SupportsAllDrives(true).
		IncludeItemsFromAllDrives(true).
		Context(ctx).
		Do()
	if err != nil {
		return "", err
	}
	if len(list.Files) == 0 {
		return "", nil
	}
	return list.Files[0].Id, nil
}

func escape(s string) string {
	return strings.NewReplacer(`\`, `\\`, `'`, `\'`).Replace(s)
}
