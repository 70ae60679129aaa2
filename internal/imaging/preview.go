package imaging

import "encoding/base64"

// CreatePreview renders the asset as a data URI for display.
func CreatePreview(asset *NormalizedImageAsset) string {
	if asset == nil {
		return ""
	}
	return "data:" + asset.MIMEType() + ";base64," + base64.StdEncoding.EncodeToString(asset.Data())
}
