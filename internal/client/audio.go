package client

import (
	"bytes"
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"syscall"
	"time"

	"github.com/francoflex/francoflex_service/internal/errors"
)

// MaxAudioBytes bounds both downloaded and uploaded recordings.
const MaxAudioBytes = 10 << 20

// AudioDownloader fetches learner recordings from their public URL.
type AudioDownloader struct {
	client       *http.Client
	maxBytes     int64
	allowedHosts []string
}

var errBlockedAddress = stderrors.New("address not allowed")

// NewAudioDownloader creates a downloader with the given timeout. When
// allowedHosts is non-empty only those hosts (and their subdomains) are fetched.
// Link-local, multicast and unspecified addresses are always refused.
func NewAudioDownloader(timeout time.Duration, allowedHosts ...string) *AudioDownloader {
	d := &AudioDownloader{
		maxBytes: MaxAudioBytes,
	}
	for _, h := range allowedHosts {
		if h = strings.ToLower(strings.TrimSpace(h)); h != "" {
			d.allowedHosts = append(d.allowedHosts, h)
		}
	}

	dialer := &net.Dialer{
		Timeout: timeout,
		Control: func(network, address string, _ syscall.RawConn) error {
			host, _, err := net.SplitHostPort(address)
			if err != nil {
				return err
			}
			ip := net.ParseIP(host)
			if ip == nil || ip.IsLinkLocalUnicast() || ip.IsMulticast() || ip.IsUnspecified() {
				return errBlockedAddress
			}
			return nil
		},
	}
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.Proxy = nil
	transport.DialContext = dialer.DialContext

	d.client = &http.Client{
		Timeout:   timeout,
		Transport: transport,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= 5 {
				return fmt.Errorf("too many redirects")
			}
			return d.checkURL(req.URL)
		},
	}
	return d
}

func (d *AudioDownloader) checkURL(u *url.URL) error {
	if u.Scheme != "http" && u.Scheme != "https" {
		return errors.Validation("audio url must use http or https")
	}
	host := strings.ToLower(u.Hostname())
	if host == "" {
		return errors.Validation("audio url has no host")
	}
	if len(d.allowedHosts) == 0 {
		return nil
	}
	for _, allowed := range d.allowedHosts {
		if host == allowed || strings.HasSuffix(host, "."+allowed) {
			return nil
		}
	}
	return errors.Validation(fmt.Sprintf("audio host %s is not allowed", host))
}

// Download fetches the audio at rawURL.
func (d *AudioDownloader) Download(ctx context.Context, rawURL string) ([]byte, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, errors.Validation("invalid audio url")
	}
	if err := d.checkURL(u); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, errors.Validation("invalid audio url")
	}

	resp, err := d.client.Do(req)
	if err != nil {
		if appErr, ok := errors.As(err); ok {
			return nil, appErr
		}
		if stderrors.Is(err, errBlockedAddress) {
			return nil, errors.Validation("audio url points to a disallowed address")
		}
		return nil, errors.Upstream("audio download", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, errors.NotFound("audio file")
	case resp.StatusCode != http.StatusOK:
		return nil, errors.Upstream("audio download", fmt.Errorf("unexpected status %d", resp.StatusCode))
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, d.maxBytes+1))
	if err != nil {
		return nil, errors.Upstream("audio download", err)
	}
	if int64(len(data)) > d.maxBytes {
		return nil, errors.Validation(fmt.Sprintf("audio file exceeds %d bytes", d.maxBytes))
	}
	if len(data) == 0 {
		return nil, errors.Validation("downloaded audio file is empty")
	}
	return data, nil
}

// DetectAudioFormat guesses the container from magic bytes. It returns "" when unknown.
func DetectAudioFormat(data []byte) string {
	switch {
	case len(data) >= 12 && bytes.Equal(data[0:4], []byte("RIFF")) && bytes.Equal(data[8:12], []byte("WAVE")):
		return "wav"
	case len(data) >= 3 && bytes.Equal(data[0:3], []byte("ID3")):
		return "mp3"
	case len(data) >= 2 && data[0] == 0xFF && data[1]&0xE0 == 0xE0:
		return "mp3"
	case len(data) >= 4 && bytes.Equal(data[0:4], []byte("OggS")):
		return "ogg"
	case len(data) >= 4 && bytes.Equal(data[0:4], []byte{0x1A, 0x45, 0xDF, 0xA3}):
		return "webm"
	default:
		return ""
	}
}
