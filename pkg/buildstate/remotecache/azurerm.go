package remotecache

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/blob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/bloberror"
)

func init() {
	Register("azurerm", newAzureBackend)
}

// azureBackend mirrors the build-state file to Azure Blob Storage, adapted
// from the teacher's pkg/state/backend/azurerm.
type azureBackend struct {
	client        *azblob.Client
	containerName string
	prefix        string
}

func newAzureBackend(cfg map[string]string) (Backend, error) {
	storageAccount, ok := cfg["storage_account_name"]
	if !ok || storageAccount == "" {
		return nil, fmt.Errorf("azurerm remote cache backend requires 'storage_account_name' configuration")
	}
	containerName, ok := cfg["container_name"]
	if !ok || containerName == "" {
		return nil, fmt.Errorf("azurerm remote cache backend requires 'container_name' configuration")
	}

	serviceURL := fmt.Sprintf("https://%s.blob.core.windows.net/", storageAccount)
	if endpoint := cfg["endpoint"]; endpoint != "" {
		serviceURL = endpoint
	}

	var client *azblob.Client
	var err error
	switch {
	case cfg["access_key"] != "":
		cred, credErr := azblob.NewSharedKeyCredential(storageAccount, cfg["access_key"])
		if credErr != nil {
			return nil, fmt.Errorf("failed to create shared key credential: %w", credErr)
		}
		client, err = azblob.NewClientWithSharedKeyCredential(serviceURL, cred, nil)
	case cfg["sas_token"] != "":
		sasToken := strings.TrimPrefix(cfg["sas_token"], "?")
		sep := "?"
		if strings.Contains(serviceURL, "?") {
			sep = "&"
		}
		client, err = azblob.NewClientWithNoCredential(serviceURL+sep+sasToken, nil)
	case cfg["connection_string"] != "":
		client, err = azblob.NewClientFromConnectionString(cfg["connection_string"], nil)
	default:
		var cred *azidentity.DefaultAzureCredential
		cred, err = azidentity.NewDefaultAzureCredential(nil)
		if err == nil {
			client, err = azblob.NewClient(serviceURL, cred, nil)
		}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create Azure client: %w", err)
	}

	return &azureBackend{client: client, containerName: containerName, prefix: cfg["key"]}, nil
}

func (b *azureBackend) Type() string { return "azurerm" }

func (b *azureBackend) Upload(ctx context.Context, key string, r io.Reader) error {
	blobPath := b.fullPath(key)
	content, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("failed to read build-state data: %w", err)
	}
	contentType := "application/octet-stream"
	_, err = b.client.UploadBuffer(ctx, b.containerName, blobPath, content, &azblob.UploadBufferOptions{
		HTTPHeaders: &blob.HTTPHeaders{BlobContentType: &contentType},
	})
	if err != nil {
		return fmt.Errorf("failed to upload build-state to azure://%s/%s: %w", b.containerName, blobPath, err)
	}
	return nil
}

func (b *azureBackend) Download(ctx context.Context, key string) (io.ReadCloser, error) {
	blobPath := b.fullPath(key)
	resp, err := b.client.DownloadStream(ctx, b.containerName, blobPath, nil)
	if err != nil {
		if bloberror.HasCode(err, bloberror.BlobNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to download build-state from azure://%s/%s: %w", b.containerName, blobPath, err)
	}
	return resp.Body, nil
}

func (b *azureBackend) Exists(ctx context.Context, key string) (bool, error) {
	blobPath := b.fullPath(key)
	_, err := b.client.DownloadStream(ctx, b.containerName, blobPath, nil)
	if err != nil {
		if bloberror.HasCode(err, bloberror.BlobNotFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (b *azureBackend) fullPath(key string) string {
	if b.prefix == "" {
		return key
	}
	return path.Join(b.prefix, key)
}

var _ Backend = (*azureBackend)(nil)
