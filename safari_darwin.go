//go:build darwin && !ios

package sweetsession

import (
	"bufio"
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// safariCookieFiles lists Cookies.binarycookies candidates, the sandboxed
// container location first.
func safariCookieFiles() []string {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil
	}
	return []string{
		filepath.Join(home, "Library", "Containers", "com.apple.Safari", "Data", "Library", "Cookies", "Cookies.binarycookies"),
		filepath.Join(home, "Library", "Cookies", "Cookies.binarycookies"),
	}
}

type safariFileHeader struct {
	Magic    [4]byte
	NumPages int32
}

type safariPageHeader struct {
	Header     [4]byte
	NumCookies int32
}

type safariCookieHeader struct {
	Size           int32
	Unknown1       int32
	Flags          int32
	Unknown2       int32
	DomainOffset   int32
	NameOffset     int32
	PathOffset     int32
	ValueOffset    int32
	End            [8]byte
	ExpirationDate float64
	CreationDate   float64
}

type safariRow struct {
	value   string
	expires float64
}

// safariSessionCookies parses a Cookies.binarycookies snapshot and collects
// the claude.ai session cookies. Safari stores values in plaintext, so there
// is no encryption to detect here.
func safariSessionCookies(ctx context.Context, path string) (map[string]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	var header safariFileHeader
	if err := binary.Read(f, binary.BigEndian, &header); err != nil {
		return nil, err
	}
	if string(header.Magic[:]) != "cook" {
		return nil, fmt.Errorf("unexpected magic %q", string(header.Magic[:]))
	}

	fi, err := f.Stat()
	if err != nil {
		return nil, err
	}
	if header.NumPages < 0 || int64(header.NumPages) > fi.Size()/4 {
		return nil, fmt.Errorf("implausible page count %d", header.NumPages)
	}

	pageSizes := make([]int32, header.NumPages)
	if err := binary.Read(f, binary.BigEndian, &pageSizes); err != nil {
		return nil, err
	}

	rows := make(map[string]safariRow)
	for i, size := range pageSizes {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if size <= 0 || int64(size) > fi.Size() {
			return nil, fmt.Errorf("page %d: implausible size %d", i, size)
		}
		if err := safariScanPage(f, i, size, rows); err != nil {
			return nil, err
		}
	}

	out := make(map[string]string, len(rows))
	for name, row := range rows {
		if row.value != "" {
			out[name] = row.value
		}
	}
	return out, nil
}

func safariScanPage(r io.Reader, page int, pageSize int32, rows map[string]safariRow) error {
	b := make([]byte, pageSize)
	if _, err := io.ReadFull(r, b); err != nil {
		return fmt.Errorf("page %d: %w", page, err)
	}
	br := bytes.NewReader(b)

	var header safariPageHeader
	if err := binary.Read(br, binary.LittleEndian, &header); err != nil {
		return fmt.Errorf("page %d: %w", page, err)
	}
	want := [4]byte{0x00, 0x00, 0x01, 0x00}
	if header.Header != want {
		return fmt.Errorf("page %d: unexpected header %v", page, header.Header)
	}
	if header.NumCookies < 0 || int(header.NumCookies) > len(b)/4 {
		return fmt.Errorf("page %d: implausible cookie count %d", page, header.NumCookies)
	}

	offsets := make([]int32, header.NumCookies)
	if err := binary.Read(br, binary.LittleEndian, &offsets); err != nil {
		return fmt.Errorf("page %d: %w", page, err)
	}

	for i, off := range offsets {
		if _, err := br.Seek(int64(off), io.SeekStart); err != nil {
			return fmt.Errorf("page %d cookie %d: %w", page, i, err)
		}
		if err := safariScanCookie(br, rows); err != nil {
			return fmt.Errorf("page %d cookie %d: %w", page, i, err)
		}
	}
	return nil
}

// safariScanCookie reads one record and keeps it when it is a claude.ai
// session cookie fresher than the one already held.
func safariScanCookie(r io.ReadSeeker, rows map[string]safariRow) error {
	start, _ := r.Seek(0, io.SeekCurrent)

	var h safariCookieHeader
	if err := binary.Read(r, binary.LittleEndian, &h); err != nil {
		return err
	}

	domain, err := safariReadString(r, "domain", start, h.DomainOffset)
	if err != nil {
		return err
	}
	if strings.TrimPrefix(domain, ".") != targetHost {
		return nil
	}

	name, err := safariReadString(r, "name", start, h.NameOffset)
	if err != nil {
		return err
	}
	switch name {
	case cookieSessionKey, cookieActiveOrg, cookieCFClearance:
	default:
		return nil
	}

	value, err := safariReadString(r, "value", start, h.ValueOffset)
	if err != nil {
		return err
	}

	if prev, ok := rows[name]; !ok || h.ExpirationDate > prev.expires {
		rows[name] = safariRow{value: value, expires: h.ExpirationDate}
	}
	return nil
}

func safariReadString(r io.ReadSeeker, field string, start int64, offset int32) (string, error) {
	if offset <= 0 {
		return "", errors.New("invalid offset")
	}
	if _, err := r.Seek(start+int64(offset), io.SeekStart); err != nil {
		return "", fmt.Errorf("seek %q: %w", field, err)
	}
	br := bufio.NewReader(r)
	s, err := br.ReadString(0)
	if err != nil {
		return "", fmt.Errorf("read %q: %w", field, err)
	}
	return strings.TrimSuffix(s, "\x00"), nil
}
