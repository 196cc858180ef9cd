package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/felixgeelhaar/gandalf/internal/domain"
	"github.com/felixgeelhaar/gandalf/internal/llm"
)

// loadImage reads an image from disk as a data URL attachment and returns
// its size in bytes. The media type is sniffed from the content and falls
// back to the file extension.
func loadImage(path string) (domain.FilePart, int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return domain.FilePart{}, 0, fmt.Errorf("open image: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return domain.FilePart{}, 0, fmt.Errorf("stat image: %w", err)
	}
	if info.IsDir() {
		return domain.FilePart{}, 0, fmt.Errorf("%s is a directory", path)
	}

	head := make([]byte, 512)
	n, err := io.ReadFull(f, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return domain.FilePart{}, 0, fmt.Errorf("read image: %w", err)
	}
	mediaType := http.DetectContentType(head[:n])
	if mediaType == "application/octet-stream" {
		if byExt := mime.TypeByExtension(strings.ToLower(filepath.Ext(path))); byExt != "" {
			mediaType, _, _ = strings.Cut(byExt, ";")
		}
	}
	if err := domain.ValidateImage(mediaType, info.Size()); err != nil {
		return domain.FilePart{}, 0, err
	}

	rest, err := io.ReadAll(f)
	if err != nil {
		return domain.FilePart{}, 0, fmt.Errorf("read image: %w", err)
	}
	img := llm.Image{MediaType: mediaType, Data: append(head[:n], rest...)}
	return domain.FilePart{
		MediaType: mediaType,
		URL:       img.DataURL(),
		Filename:  filepath.Base(path),
	}, int64(len(img.Data)), nil
}

// sendImage attaches an image with an optional caption and asks the tutor
// about it. args is "<path> [caption]".
func (s *session) sendImage(ctx context.Context, args string) error {
	path, caption, _ := strings.Cut(strings.TrimSpace(args), " ")
	if path == "" {
		s.printError("Usage: /image <path> [caption]")
		return nil
	}
	part, size, err := loadImage(path)
	if err != nil {
		s.printError(err.Error())
		return nil
	}
	fmt.Fprintln(s.out, mutedStyle.Render(fmt.Sprintf("Attached %s (%s)", part.Filename, formatSize(size))))
	return s.sendMessage(ctx, domain.NewImageMessage(domain.NewMessageID(), strings.TrimSpace(caption), part))
}

// formatSize prints a byte count the way upload previews do.
func formatSize(n int64) string {
	switch {
	case n < 1024:
		return fmt.Sprintf("%d Bytes", n)
	case n < 1024*1024:
		return fmt.Sprintf("%.1f KB", float64(n)/1024)
	default:
		return fmt.Sprintf("%.2f MB", float64(n)/(1024*1024))
	}
}
