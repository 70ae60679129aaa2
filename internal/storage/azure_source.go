package storage

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/bloberror"

	apperrors "github.com/anime-shed/reply-assistant-go/internal/errors"
	"github.com/anime-shed/reply-assistant-go/internal/imaging"
)

// blobDownload is the part of a blob download the source needs.
type blobDownload struct {
	Body          io.ReadCloser
	ContentType   string
	ContentLength int64
}

type blobDownloader interface {
	Download(ctx context.Context, container, blob string) (blobDownload, error)
}

type azblobDownloader struct {
	client *azblob.Client
}

func (d azblobDownloader) Download(ctx context.Context, container, blob string) (blobDownload, error) {
	resp, err := d.client.DownloadStream(ctx, container, blob, nil)
	if err != nil {
		return blobDownload{}, err
	}
	out := blobDownload{Body: resp.Body, ContentLength: -1}
	if resp.ContentType != nil {
		out.ContentType = *resp.ContentType
	}
	if resp.ContentLength != nil {
		out.ContentLength = *resp.ContentLength
	}
	return out, nil
}

// AzureBlobSource downloads screenshots from an Azure Storage account.
type AzureBlobSource struct {
	account    string
	downloader blobDownloader
	maxBytes   int64
}

// NewAzureBlobSource authenticates with a shared key.
func NewAzureBlobSource(accountName, accountKey string) (*AzureBlobSource, error) {
	credential, err := azblob.NewSharedKeyCredential(accountName, accountKey)
	if err != nil {
		return nil, apperrors.NewConfigurationError("Azure storage credentials are invalid.", err)
	}

	client, err := azblob.NewClientWithSharedKeyCredential(
		fmt.Sprintf("https://%s.blob.core.windows.net/", accountName),
		credential,
		nil,
	)
	if err != nil {
		return nil, apperrors.NewConfigurationError("Could not create the Azure storage client.", err)
	}

	return newAzureBlobSource(accountName, azblobDownloader{client: client}), nil
}

func newAzureBlobSource(account string, d blobDownloader) *AzureBlobSource {
	return &AzureBlobSource{
		account:    account,
		downloader: d,
		maxBytes:   imaging.HardSizeLimit,
	}
}

// Name returns the source name
func (s *AzureBlobSource) Name() string {
	return "azure"
}

// FetchImage accepts a full blob URL
// (https://<account>.blob.core.windows.net/<container>/<blob>) or a
// "<container>/<blob>" path in the configured account.
func (s *AzureBlobSource) FetchImage(ctx context.Context, ref string) (imaging.RawImageAsset, error) {
	container, blobName, err := s.parseRef(ref)
	if err != nil {
		return imaging.RawImageAsset{}, apperrors.NewValidationError("Invalid blob reference.", err)
	}

	dl, err := s.downloader.Download(ctx, container, blobName)
	if err != nil {
		if bloberror.HasCode(err, bloberror.BlobNotFound, bloberror.ContainerNotFound) {
			return imaging.RawImageAsset{}, apperrors.NewNotFoundError("The image was not found in storage.", err)
		}
		return imaging.RawImageAsset{}, apperrors.NewNetworkError("Could not download the image from storage.", fmt.Errorf("download failed: %w", err))
	}
	defer dl.Body.Close()

	tooLarge := apperrors.NewValidationError(
		fmt.Sprintf("Image is too large. The maximum size is %d MB.", s.maxBytes/(1024*1024)), nil)
	if dl.ContentLength > s.maxBytes {
		return imaging.RawImageAsset{}, tooLarge
	}
	data, err := io.ReadAll(io.LimitReader(dl.Body, s.maxBytes+1))
	if err != nil {
		return imaging.RawImageAsset{}, apperrors.NewNetworkError("Could not download the image from storage.", err)
	}
	if int64(len(data)) > s.maxBytes {
		return imaging.RawImageAsset{}, tooLarge
	}

	return imaging.RawImageFromBytes(assetName(blobName), contentType(dl.ContentType, data), data), nil
}

func (s *AzureBlobSource) parseRef(ref string) (string, string, error) {
	if strings.HasPrefix(ref, "https://") || strings.HasPrefix(ref, "http://") {
		parts, err := azblob.ParseURL(ref)
		if err != nil {
			return "", "", err
		}
		if host := strings.ToLower(parts.Host); !strings.HasPrefix(host, strings.ToLower(s.account)+".") {
			return "", "", fmt.Errorf("blob URL host %q is not in account %q", parts.Host, s.account)
		}
		if parts.ContainerName == "" || parts.BlobName == "" {
			return "", "", fmt.Errorf("blob URL must name a container and a blob")
		}
		return parts.ContainerName, parts.BlobName, nil
	}

	container, blobName, ok := strings.Cut(strings.TrimPrefix(ref, "/"), "/")
	if !ok || container == "" || blobName == "" {
		return "", "", fmt.Errorf("expected <container>/<blob>, got %q", ref)
	}
	return container, blobName, nil
}
