package monitor

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	_ "image/png" // PNG-скриншоты перекодируются в JPEG
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
)

// ErrStreamEnded — источник кадров закончился (аналог остановки демонстрации экрана).
var ErrStreamEnded = errors.New("monitor: stream ended")

// Frame — один захваченный кадр.
type Frame struct {
	Data []byte
}

// FrameSource выдает кадры по запросу.
type FrameSource interface {
	Next(ctx context.Context) (Frame, error)
}

const jpegQuality = 95

// EncodeDataURL перекодирует кадр в JPEG и оборачивает в data URL.
func EncodeDataURL(f Frame) (string, error) {
	img, _, err := image.Decode(bytes.NewReader(f.Data))
	if err != nil {
		return "", fmt.Errorf("monitor: decode frame: %w", err)
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: jpegQuality}); err != nil {
		return "", fmt.Errorf("monitor: encode jpeg: %w", err)
	}
	return "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

// FileSource каждый раз перечитывает один файл: его обновляет внешний скриншотер.
type FileSource struct {
	Path string
}

func (s FileSource) Next(ctx context.Context) (Frame, error) {
	if err := ctx.Err(); err != nil {
		return Frame{}, err
	}
	data, err := os.ReadFile(s.Path)
	if err != nil {
		return Frame{}, fmt.Errorf("monitor: read frame: %w", err)
	}
	return Frame{Data: data}, nil
}

// DirSource отдает изображения каталога по порядку имен.
// Без Loop после последнего кадра поток считается завершенным.
type DirSource struct {
	mu    sync.Mutex
	files []string
	pos   int
	loop  bool
}

func NewDirSource(dir string, loop bool) (*DirSource, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("monitor: read dir: %w", err)
	}

	var files []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(e.Name())) {
		case ".jpg", ".jpeg", ".png":
			files = append(files, filepath.Join(dir, e.Name()))
		}
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("monitor: no images in %s", dir)
	}
	slices.Sort(files)
	return &DirSource{files: files, loop: loop}, nil
}

func (s *DirSource) Next(ctx context.Context) (Frame, error) {
	if err := ctx.Err(); err != nil {
		return Frame{}, err
	}

	s.mu.Lock()
	if s.pos >= len(s.files) {
		if !s.loop {
			s.mu.Unlock()
			return Frame{}, ErrStreamEnded
		}
		s.pos = 0
	}
	path := s.files[s.pos]
	s.pos++
	s.mu.Unlock()

	return FileSource{Path: path}.Next(ctx)
}
