package storage

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"net/url"
	"strings"

	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	"github.com/disintegration/imaging"
)

type AzureStorage struct {
	client *azblob.Client
}

// NewAzureStorage connects to the blob service of the given account.
// Locations look like azblob://<container>/<blob path>.
func NewAzureStorage(accountName string, accountKey string) (*AzureStorage, error) {
	return NewAzureStorageWithURL(fmt.Sprintf("https://%s.blob.core.windows.net", accountName), accountName, accountKey)
}

// NewAzureStorageWithURL is NewAzureStorage against a custom service URL,
// e.g. a local Azurite emulator
func NewAzureStorageWithURL(serviceURL, accountName, accountKey string) (*AzureStorage, error) {
	credential, err := azblob.NewSharedKeyCredential(accountName, accountKey)
	if err != nil {
		return nil, fmt.Errorf("azure credential: %w", err)
	}

	client, err := azblob.NewClientWithSharedKeyCredential(serviceURL, credential, nil)
	if err != nil {
		return nil, fmt.Errorf("azure client: %w", err)
	}

	return &AzureStorage{client: client}, nil
}

func (s *AzureStorage) LoadImage(ctx context.Context, location string) (image.Image, error) {
	containerName, blobName, err := ParseBlobLocation(location)
	if err != nil {
		return nil, err
	}

	downloadResponse, err := s.client.DownloadStream(ctx, containerName, blobName, nil)
	if err != nil {
		return nil, fmt.Errorf("download failed: %w", err)
	}

	retryReader := downloadResponse.Body
	defer retryReader.Close()

	img, err := imaging.Decode(retryReader, imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}
	return img, nil
}

func (s *AzureStorage) SaveImage(ctx context.Context, location string, img image.Image) error {
	containerName, blobName, err := ParseBlobLocation(location)
	if err != nil {
		return err
	}

	format, err := imaging.FormatFromFilename(blobName)
	if err != nil {
		return fmt.Errorf("output format: %w", err)
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, format); err != nil {
		return fmt.Errorf("encode image: %w", err)
	}

	if _, err := s.client.UploadBuffer(ctx, containerName, blobName, buf.Bytes(), nil); err != nil {
		return fmt.Errorf("upload failed: %w", err)
	}
	return nil
}

// ParseBlobLocation splits azblob://container/path/to/blob into its parts
func ParseBlobLocation(location string) (string, string, error) {
	parsedURL, err := url.Parse(location)
	if err != nil {
		return "", "", fmt.Errorf("invalid blob location: %w", err)
	}
	if parsedURL.Scheme != "azblob" {
		return "", "", fmt.Errorf("invalid blob location %q: scheme must be azblob", location)
	}

	blobName := strings.TrimPrefix(parsedURL.Path, "/")
	if parsedURL.Host == "" || blobName == "" {
		return "", "", fmt.Errorf("invalid blob location %q: expected azblob://<container>/<blob>", location)
	}
	return parsedURL.Host, blobName, nil
}
