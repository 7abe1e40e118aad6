package zimp

// ContentTypeResolver maps an extracted file to its MIME type.
// Implementations must fall back to a generic binary type, never "".
type ContentTypeResolver interface {
	ContentType(path string) string
}
