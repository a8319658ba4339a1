package integration

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/kdimtricp/pagescan/internal/api"
	"github.com/kdimtricp/pagescan/internal/bootstrap"
	"github.com/kdimtricp/pagescan/internal/config"
)

type TestServer struct {
	Server     *httptest.Server
	App        *api.App
	Components *bootstrap.Components
	FramesRoot string
}

func setupTestServer(t *testing.T) *TestServer {
	t.Helper()

	cfg, err := config.Load("")
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}
	cfg.FramesRoot = t.TempDir()
	cfg.StaleExt = ".png"
	cfg.DBType = "sqlite"
	cfg.DBPath = filepath.Join(t.TempDir(), "test.db")
	cfg.MinIOEndpoint = ""
	cfg.RabbitMQURL = ""
	cfg.OTELExporterEndpoint = ""

	logger := slogDiscard()
	c, err := bootstrap.Build(context.Background(), cfg, true, logger)
	if err != nil {
		t.Fatalf("Failed to build components: %v", err)
	}

	app := &api.App{
		Service:    c.Service,
		Storage:    c.Storage,
		Runs:       c.Runs,
		Results:    c.Results,
		FramesRoot: cfg.FramesRoot,
		Logger:     logger,
	}

	server := httptest.NewServer(api.NewRouter(app))
	t.Cleanup(func() {
		server.Close()
		c.Close()
	})

	return &TestServer{
		Server:     server,
		App:        app,
		Components: c,
		FramesRoot: cfg.FramesRoot,
	}
}

var (
	black  = color.NRGBA{A: 255}
	white  = color.NRGBA{R: 255, G: 255, B: 255, A: 255}
	orange = color.NRGBA{R: 240, G: 140, A: 255}
	navy   = color.NRGBA{B: 120, A: 255}
	grey   = color.NRGBA{R: 128, G: 128, B: 128, A: 255}
)

// pageImage renders a two-colour checkerboard; smaller cells are sharper.
func pageImage(cell int, a, b color.NRGBA) image.Image {
	img := image.NewNRGBA(image.Rect(0, 0, 40, 40))
	for y := 0; y < 40; y++ {
		for x := 0; x < 40; x++ {
			c := b
			if (x/cell+y/cell)%2 == 0 {
				c = a
			}
			img.SetNRGBA(x, y, c)
		}
	}
	return img
}

func writeFrame(t *testing.T, dir, name string, img image.Image) {
	t.Helper()
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatalf("Failed to create dir: %v", err)
	}
	f, err := os.Create(filepath.Join(dir, name))
	if err != nil {
		t.Fatalf("Failed to create frame: %v", err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		t.Fatalf("Failed to encode frame: %v", err)
	}
}

func postJSON(t *testing.T, url, body string) *http.Response {
	t.Helper()
	resp, err := http.Post(url, "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatalf("POST %s failed: %v", url, err)
	}
	return resp
}

func decode(t *testing.T, resp *http.Response, v any) {
	t.Helper()
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		t.Fatalf("Expected status 200, got %d: %s", resp.StatusCode, body)
	}
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
}

func countRows(db *sql.DB, table string) (int, error) {
	var count int
	err := db.QueryRow(fmt.Sprintf("SELECT COUNT(*) FROM %s", table)).Scan(&count)
	return count, err
}
