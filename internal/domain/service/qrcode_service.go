package service

// QRCodeService defines the interface for QR code generation.
type QRCodeService interface {
	// GenerateDataURL renders the given content as a PNG QR code and returns
	// it as a data:image/png;base64 URL suitable for direct embedding.
	GenerateDataURL(content string) (string, error)
}
