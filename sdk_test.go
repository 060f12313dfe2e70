package gtx_test

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/jpeg"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/kelindar/gtx-sdk"
	"github.com/kelindar/gtx-sdk/internal/fixture"
	"github.com/kelindar/gtx-sdk/internal/gfd"
	"github.com/kelindar/gtx-sdk/mock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// whiteBC1 is a BC1 block with c0 = white, c1 = black and every index 0
var whiteBC1 = []byte{0xFF, 0xFF, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00}

// rgba2x2 is a linear 2x2 RGBA8 container with a pitch of 2 pixels
func rgba2x2() []byte {
	return fixture.New().
		Surface(fixture.Linear(gfd.FormatR8G8B8A8, 2, 2, 2)).
		Image([]byte{
			10, 20, 30, 40, 11, 21, 31, 41,
			12, 22, 32, 42, 13, 23, 33, 43,
		}).
		End().
		Bytes()
}

// bc1White is a linear 4x4 BC1 container made of one white block
func bc1White() []byte {
	return fixture.New().
		Surface(fixture.Linear(gfd.FormatBC1, 4, 4, 1)).
		Image(whiteBC1).
		End().
		Bytes()
}

func isPlaceholder(t *testing.T, images []*image.RGBA) {
	t.Helper()
	require.Len(t, images, 1)
	assert.Equal(t, image.Rect(0, 0, 1, 1), images[0].Bounds())
	assert.Equal(t, color.RGBA{}, images[0].RGBAAt(0, 0))
}

func TestOpenClose_WithValidDirectory(t *testing.T) {
	gtx.TestWith(t, map[string][]byte{
		"ui/title.gtx": rgba2x2(),
	}, func(t *testing.T, sdk *gtx.SDK) {
		images, err := sdk.Load(context.Background(), "ui/title.gtx")
		require.NoError(t, err)
		require.Len(t, images, 1)
		assert.Equal(t, color.RGBA{10, 20, 30, 40}, images[0].RGBAAt(0, 0))

		assert.NoError(t, sdk.Close())
		_, err = sdk.Load(context.Background(), "ui/title.gtx")
		assert.ErrorIs(t, err, gtx.ErrClosed)
	})
}

func TestOpen_InvalidPaths(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "missing")
	sdk, err := gtx.Open(missing)
	assert.Error(t, err)
	assert.Nil(t, sdk)
	assert.Contains(t, err.Error(), missing)

	_, err = gtx.OpenURL("ftp://example.com/assets")
	assert.Error(t, err)
}

func TestOpenURL(t *testing.T) {
	data := rgba2x2()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/content/ui/title.gtx" {
			w.Write(data)
			return
		}
		http.NotFound(w, r)
	}))
	defer server.Close()

	sdk, err := gtx.OpenURL(server.URL+"/content", gtx.WithHTTPClient(server.Client()))
	require.NoError(t, err)
	defer sdk.Close()

	images, err := sdk.Load(context.Background(), "ui/title.gtx")
	require.NoError(t, err)
	assert.Equal(t, color.RGBA{13, 23, 33, 43}, images[0].RGBAAt(1, 1))

	_, err = sdk.Load(context.Background(), "ui/missing.gtx")
	assert.ErrorIs(t, err, gtx.ErrFetch)
}

func TestLoad_LinearRGBA8(t *testing.T) {
	sdk := gtx.New(mock.New().Add("ui/title.gtx", rgba2x2()))
	images, err := sdk.Load(context.Background(), "ui/title.gtx")
	require.NoError(t, err)
	require.Len(t, images, 1)
	assert.Equal(t, image.Rect(0, 0, 2, 2), images[0].Bounds())
	assert.Equal(t, []uint8{10, 20, 30, 40}, images[0].Pix[:4])
}

func TestLoad_BC1White(t *testing.T) {
	sdk := gtx.New(mock.New().Add("ui/white.gtx", bc1White()))
	images, err := sdk.Load(context.Background(), "ui/white.gtx")
	require.NoError(t, err)
	require.Len(t, images, 1)
	for y := 0; y < 4; y++ {
		for x := 0; x < 4; x++ {
			assert.Equal(t, color.RGBA{255, 255, 255, 255}, images[0].RGBAAt(x, y))
		}
	}
}

func TestLoad_MultiplePairs(t *testing.T) {
	data := fixture.New().
		Surface(fixture.Linear(gfd.FormatR8G8B8A8, 1, 1, 1)).
		Image([]byte{1, 2, 3, 4}).
		Surface(fixture.Linear(gfd.FormatBC1, 4, 4, 1)).
		Image(whiteBC1).
		Surface(fixture.Linear(gfd.Format(0x99), 4, 4, 1)).
		Image(make([]byte, 16)).
		End().
		Bytes()

	sdk := gtx.New(mock.New().Add("ui/multi.gtx", data))
	images, err := sdk.Load(context.Background(), "ui/multi.gtx")
	require.NoError(t, err)
	require.Len(t, images, 3)
	assert.Equal(t, color.RGBA{1, 2, 3, 4}, images[0].RGBAAt(0, 0))
	assert.Equal(t, color.RGBA{255, 255, 255, 255}, images[1].RGBAAt(3, 3))
	assert.Equal(t, image.Rect(0, 0, 1, 1), images[2].Bounds())
}

func TestLoad_Compressed(t *testing.T) {
	fetcher := mock.New().
		Add("ui/a.gtx.gz", fixture.Gzip(rgba2x2())).
		Add("ui/b.gtx.zst", fixture.Zstd(rgba2x2()))

	sdk := gtx.New(fetcher)
	for _, name := range []string{"ui/a.gtx.gz", "ui/b.gtx.zst"} {
		images, err := sdk.Load(context.Background(), name)
		require.NoError(t, err)
		assert.Equal(t, color.RGBA{10, 20, 30, 40}, images[0].RGBAAt(0, 0))
	}
}

func TestLoad_RetryWithCompressedSuffix(t *testing.T) {
	fetcher := mock.New().Add("ui/title.gtx.gz", fixture.Gzip(bc1White()))
	sdk := gtx.New(fetcher)

	retried, err := sdk.Load(context.Background(), "ui/title.gtx")
	require.NoError(t, err)
	assert.Equal(t, 1, fetcher.Calls("ui/title.gtx"))
	assert.Equal(t, 1, fetcher.Calls("ui/title.gtx.gz"))

	direct, err := gtx.New(fetcher).Load(context.Background(), "ui/title.gtx.gz")
	require.NoError(t, err)
	require.Len(t, retried, len(direct))
	for i := range direct {
		assert.Equal(t, direct[i].Rect, retried[i].Rect)
		assert.Equal(t, direct[i].Pix, retried[i].Pix)
	}
}

func TestLoad_NoRetryForOtherExtensions(t *testing.T) {
	fetcher := mock.New().Add("ui/title.bin.gz", fixture.Gzip(rgba2x2()))
	sdk := gtx.New(fetcher)

	_, err := sdk.Load(context.Background(), "ui/title.bin")
	assert.ErrorIs(t, err, gtx.ErrFetch)
	assert.Equal(t, 1, fetcher.Total())
}

func TestLoad_Dedup(t *testing.T) {
	fetcher := mock.New().Add("ui/title.gtx", rgba2x2())
	release := fetcher.Hold()
	sdk := gtx.New(fetcher)

	const callers = 8
	var wg sync.WaitGroup
	results := make([][]*image.RGBA, callers)
	errs := make([]error, callers)

	wg.Add(1)
	go func() {
		defer wg.Done()
		results[0], errs[0] = sdk.Load(context.Background(), "ui/title.gtx")
	}()

	require.Eventually(t, func() bool {
		return fetcher.Calls("ui/title.gtx") == 1
	}, time.Second, time.Millisecond)

	for i := 1; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = sdk.Load(context.Background(), "/ui\\title.gtx")
		}(i)
	}

	release()
	wg.Wait()

	assert.Equal(t, 1, fetcher.Total())
	for i := 0; i < callers; i++ {
		require.NoError(t, errs[i])
		require.Len(t, results[i], 1)
		assert.Same(t, results[0][0], results[i][0])
	}
}

func TestLoad_CallerCanceled(t *testing.T) {
	fetcher := mock.New().Add("ui/title.gtx", rgba2x2())
	release := fetcher.Hold()
	sdk := gtx.New(fetcher)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		assert.Eventually(t, func() bool {
			return fetcher.Calls("ui/title.gtx") == 1
		}, time.Second, time.Millisecond)
		cancel()
	}()

	_, err := sdk.Load(ctx, "ui/title.gtx")
	assert.ErrorIs(t, err, context.Canceled)

	// The shared pipeline is not affected by the canceled caller
	release()
	images, err := sdk.Load(context.Background(), "ui/title.gtx")
	require.NoError(t, err)
	assert.Equal(t, color.RGBA{10, 20, 30, 40}, images[0].RGBAAt(0, 0))
	assert.Equal(t, 1, fetcher.Total())
}

func TestLoad_FailureCached(t *testing.T) {
	fetcher := mock.New()
	sdk := gtx.New(fetcher)

	for i := 0; i < 3; i++ {
		_, err := sdk.Load(context.Background(), "ui/missing.gtx")
		assert.ErrorIs(t, err, gtx.ErrFetch)
		assert.ErrorIs(t, err, mock.ErrNotFound)
	}

	assert.Equal(t, 1, fetcher.Calls("ui/missing.gtx"))
	assert.Equal(t, 1, fetcher.Calls("ui/missing.gtx.gz"))
}

func TestLoad_DecompressFailure(t *testing.T) {
	sdk := gtx.New(mock.New().Add("ui/title.gtx.gz", []byte("not gzip")))
	_, err := sdk.Load(context.Background(), "ui/title.gtx.gz")
	assert.ErrorIs(t, err, gtx.ErrDecompress)
}

func TestLoad_Placeholders(t *testing.T) {
	fetcher := mock.New().
		Add("ui/bad.gtx", []byte("this is not a container at all")).
		Add("ui/empty.gtx", fixture.New().End().Bytes()).
		Add("ui/short.gtx", []byte("Gfx2"))

	sdk := gtx.New(fetcher)
	for _, name := range []string{"ui/bad.gtx", "ui/empty.gtx", "ui/short.gtx"} {
		t.Run(name, func(t *testing.T) {
			images, err := sdk.Load(context.Background(), name)
			require.NoError(t, err)
			isPlaceholder(t, images)
		})
	}
}

func TestLoad_InvalidPath(t *testing.T) {
	sdk := gtx.New(mock.New())
	for _, name := range []string{"", "null", "undefined", "/"} {
		_, err := sdk.Load(context.Background(), name)
		assert.ErrorIs(t, err, gtx.ErrInvalidPath)
	}
}

func TestLoad_NoFetcher(t *testing.T) {
	_, err := gtx.New(nil).Load(context.Background(), "ui/title.gtx")
	assert.ErrorIs(t, err, gtx.ErrFetch)
}

func TestLoad_Raster(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 3, 2))
	src.SetRGBA(2, 1, color.RGBA{1, 2, 3, 255})

	var jpg bytes.Buffer
	require.NoError(t, jpeg.Encode(&jpg, image.NewGray(image.Rect(0, 0, 5, 4)), nil))

	fetcher := mock.New().
		Add("ui/icon.png", src).
		Add("ui/photo.jpg", jpg.Bytes()).
		Add("ui/broken.png", []byte("not a png"))

	sdk := gtx.New(fetcher)
	images, err := sdk.Load(context.Background(), "ui/icon.png")
	require.NoError(t, err)
	require.Len(t, images, 1)
	assert.Equal(t, image.Rect(0, 0, 3, 2), images[0].Bounds())
	assert.Equal(t, color.RGBA{1, 2, 3, 255}, images[0].RGBAAt(2, 1))

	images, err = sdk.Load(context.Background(), "ui/photo.jpg")
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 5, 4), images[0].Bounds())

	_, err = sdk.Load(context.Background(), "ui/broken.png")
	assert.ErrorIs(t, err, gtx.ErrDecode)

	_, err = sdk.Load(context.Background(), "ui/missing.webp")
	assert.ErrorIs(t, err, gtx.ErrFetch)
	assert.Equal(t, 0, fetcher.Calls("ui/missing.webp.gz"))
}

func TestLoad_AtlasSlicing(t *testing.T) {
	atlas := fixture.New().
		Surface(fixture.Linear(gfd.FormatR8G8B8A8, 4, 2, 4)).
		Image([]byte{
			1, 0, 0, 255, 1, 0, 0, 255, 2, 0, 0, 255, 2, 0, 0, 255,
			1, 0, 0, 255, 1, 0, 0, 255, 2, 0, 0, 255, 2, 0, 0, 255,
		}).
		End().
		Bytes()

	sidecar := `{"animations":[{"cells":[{"size":{"x":2,"y":2},"imageTable":[{"x":0,"y":0},{"x":2,"y":0}]}]}]}`
	fetcher := mock.New().
		Add("content/actor2dData/coin.gtx.gz", fixture.Gzip(atlas)).
		Add("content/actor2dData/coin.json", sidecar).
		Add("content/layoutData/coin.gtx", atlas).
		Add("content/layoutData/coin.json", sidecar)

	t.Run("sliced", func(t *testing.T) {
		sdk := gtx.New(fetcher, gtx.WithAtlasSlicing(true))
		frames, err := sdk.Load(context.Background(), "content/actor2dData/coin.gtx")
		require.NoError(t, err)
		require.Len(t, frames, 2)
		assert.Equal(t, image.Rect(0, 0, 2, 2), frames[0].Bounds())
		assert.Equal(t, uint8(1), frames[0].RGBAAt(1, 1).R)
		assert.Equal(t, uint8(2), frames[1].RGBAAt(0, 0).R)
	})

	t.Run("disabled", func(t *testing.T) {
		sdk := gtx.New(fetcher)
		images, err := sdk.Load(context.Background(), "content/actor2dData/coin.gtx")
		require.NoError(t, err)
		require.Len(t, images, 1)
		assert.Equal(t, image.Rect(0, 0, 4, 2), images[0].Bounds())
	})

	t.Run("not an actor", func(t *testing.T) {
		sdk := gtx.New(fetcher, gtx.WithAtlasSlicing(true))
		images, err := sdk.Load(context.Background(), "content/layoutData/coin.gtx")
		require.NoError(t, err)
		require.Len(t, images, 1)
	})

	t.Run("no sidecar", func(t *testing.T) {
		sdk := gtx.New(mock.New().Add("actor2dData/ring.gtx", atlas), gtx.WithAtlasSlicing(true))
		images, err := sdk.Load(context.Background(), "actor2dData/ring.gtx")
		require.NoError(t, err)
		require.Len(t, images, 1)
	})
}

func TestLoadOrPlaceholder(t *testing.T) {
	sdk := gtx.New(mock.New().Add("ui/title.gtx", rgba2x2()))
	images := sdk.LoadOrPlaceholder(context.Background(), "ui/title.gtx")
	assert.Equal(t, image.Rect(0, 0, 2, 2), images[0].Bounds())

	isPlaceholder(t, sdk.LoadOrPlaceholder(context.Background(), "ui/missing.gtx"))
}

func TestWithLegacyPaths(t *testing.T) {
	const blocks = 8
	data := make([]byte, 0x4000)
	for i := range data {
		data[i] = byte(i*7) ^ byte(i>>8)
	}

	container := fixture.New().
		Surface(fixture.Tiled(gfd.FormatBC1, blocks*4, blocks*4, blocks, 0)).
		Image(data).
		End().
		Bytes()

	fetcher := mock.New().Add("custom/menu.gtx", container)
	standard, err := gtx.New(fetcher).Load(context.Background(), "custom/menu.gtx")
	require.NoError(t, err)

	legacy, err := gtx.New(fetcher, gtx.WithLegacyPaths("CUSTOM\\")).Load(context.Background(), "custom/menu.gtx")
	require.NoError(t, err)
	assert.NotEqual(t, standard[0].Pix, legacy[0].Pix)
}

func TestDecode(t *testing.T) {
	images, err := gtx.Decode("ui/title.gtx.gz", fixture.Gzip(rgba2x2()))
	require.NoError(t, err)
	assert.Equal(t, color.RGBA{10, 20, 30, 40}, images[0].RGBAAt(0, 0))

	_, err = gtx.Decode("ui/title.gtx.gz", []byte("plain"))
	assert.ErrorIs(t, err, gtx.ErrDecompress)
}
