// Package output writes serialized results to stdout, a local file or Azure
// Blob Storage.
package output

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/blob"

	"geospider/pkg/spider"
)

const (
	// connectionStringEnv holds an Azure Storage connection string; when set
	// it takes precedence over credential-based access.
	connectionStringEnv = "AZURE_STORAGE_CONNECTION_STRING"

	// accountURLEnv holds the storage account URL used with the default
	// Azure credential chain.
	accountURLEnv = "AZURE_STORAGE_ACCOUNT_URL"

	azureScheme = "azure://"
)

// Writer routes serialized output to its destination. Destinations:
//
//	-                        stdout
//	azure://container/path   blob upload
//	anything else            local file
type Writer struct {
	stdout     io.Writer
	env        func(string) string
	accountURL string
	logger     spider.Logger
}

// WriterOption configures a Writer.
type WriterOption func(*Writer)

// WithStdout overrides the stdout stream, used by tests.
func WithStdout(w io.Writer) WriterOption {
	return func(wr *Writer) {
		wr.stdout = w
	}
}

// WithEnv overrides environment lookup, used by tests.
func WithEnv(env func(string) string) WriterOption {
	return func(wr *Writer) {
		wr.env = env
	}
}

// WithAccountURL pins the storage account URL, taking precedence over the
// environment.
func WithAccountURL(url string) WriterOption {
	return func(wr *Writer) {
		wr.accountURL = url
	}
}

// NewWriter creates an output writer.
func NewWriter(logger spider.Logger, opts ...WriterOption) *Writer {
	w := &Writer{
		stdout: os.Stdout,
		env:    os.Getenv,
		logger: logger,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Write delivers data to the destination. The content type is only used for
// blob uploads.
func (w *Writer) Write(ctx context.Context, destination string, data []byte, contentType string) error {
	switch {
	case destination == "-":
		_, err := w.stdout.Write(data)
		return err
	case strings.HasPrefix(destination, azureScheme):
		return w.writeBlob(ctx, destination, data, contentType)
	default:
		if err := os.WriteFile(destination, data, 0o644); err != nil {
			return fmt.Errorf("writing output file: %w", err)
		}
		w.logger.Info("wrote %d bytes to %s", len(data), destination)
		return nil
	}
}

func (w *Writer) writeBlob(ctx context.Context, destination string, data []byte, contentType string) error {
	container, blobName, err := parseAzureDestination(destination)
	if err != nil {
		return err
	}

	client, err := w.blobClient()
	if err != nil {
		return err
	}

	_, err = client.UploadBuffer(ctx, container, blobName, data, &azblob.UploadBufferOptions{
		HTTPHeaders: &blob.HTTPHeaders{BlobContentType: &contentType},
	})
	if err != nil {
		return fmt.Errorf("uploading blob %s: %w", destination, err)
	}
	w.logger.Info("uploaded %d bytes to %s", len(data), destination)
	return nil
}

// blobClient builds a storage client: an explicitly configured account URL
// wins, then a connection string from the environment, then the environment
// account URL with the default credential chain.
func (w *Writer) blobClient() (*azblob.Client, error) {
	accountURL := w.accountURL
	if accountURL == "" {
		if conn := w.env(connectionStringEnv); conn != "" {
			client, err := azblob.NewClientFromConnectionString(conn, nil)
			if err != nil {
				return nil, fmt.Errorf("creating storage client from connection string: %w", err)
			}
			return client, nil
		}
		accountURL = w.env(accountURLEnv)
	}
	if accountURL == "" {
		return nil, fmt.Errorf("azure output requires %s or %s to be set: %w",
			connectionStringEnv, accountURLEnv, spider.ErrInvalidConfig)
	}
	cred, err := azidentity.NewDefaultAzureCredential(nil)
	if err != nil {
		return nil, fmt.Errorf("creating azure credential: %w", err)
	}
	client, err := azblob.NewClient(accountURL, cred, nil)
	if err != nil {
		return nil, fmt.Errorf("creating storage client for %s: %w", accountURL, err)
	}
	return client, nil
}

// parseAzureDestination splits azure://container/path/to/blob into its
// container and blob name.
func parseAzureDestination(destination string) (container, blobName string, err error) {
	rest := strings.TrimPrefix(destination, azureScheme)
	container, blobName, found := strings.Cut(rest, "/")
	if !found || container == "" || blobName == "" {
		return "", "", fmt.Errorf("invalid azure destination %q (expected azure://container/blob): %w",
			destination, spider.ErrInvalidConfig)
	}
	return container, blobName, nil
}
