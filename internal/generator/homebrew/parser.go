package homebrew

import (
	"bufio"
	"fmt"
	"io"
	"regexp"
	"strings"
	"unicode"

	"github.com/ralt/rmrf/internal/models"
)

var (
	classRe    = regexp.MustCompile(`^class\s+(\w+)\s*<\s*Formula`)
	versionRe  = regexp.MustCompile(`^version\s+"([^"]+)"`)
	descRe     = regexp.MustCompile(`^desc\s+"((?:[^"\\]|\\.)*)"`)
	homepageRe = regexp.MustCompile(`^homepage\s+"([^"]+)"`)
	licenseRe  = regexp.MustCompile(`^license\s+"([^"]+)"`)
	blockRe    = regexp.MustCompile(`^on_(macos|linux)\s+do`)
	urlRe      = regexp.MustCompile(`^url\s+"([^"]+)"`)
	sha256Re   = regexp.MustCompile(`^sha256\s+"([^"]+)"`)
	installRe  = regexp.MustCompile(`^bin\.install\s+"([^"]+)"`)
)

// ParseFormula reads back a formula written by Generate, so that a
// regenerated formula can keep its existing metadata
func ParseFormula(r io.Reader) (*models.PackageSpec, error) {
	spec := &models.PackageSpec{}

	var className, block string
	var current *models.Asset

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())

		if matches := classRe.FindStringSubmatch(line); len(matches) > 1 {
			className = matches[1]
		}
		if matches := versionRe.FindStringSubmatch(line); len(matches) > 1 {
			spec.Version = matches[1]
		}
		if matches := descRe.FindStringSubmatch(line); len(matches) > 1 {
			spec.Description = unquote(matches[1])
		}
		if matches := homepageRe.FindStringSubmatch(line); len(matches) > 1 {
			spec.Homepage = matches[1]
		}
		if matches := licenseRe.FindStringSubmatch(line); len(matches) > 1 {
			spec.License = matches[1]
		}
		if matches := installRe.FindStringSubmatch(line); len(matches) > 1 {
			spec.Binary = matches[1]
		}

		if matches := blockRe.FindStringSubmatch(line); len(matches) > 1 {
			block = matches[1]
			current = &models.Asset{Platform: block}
			continue
		}
		if block == "" {
			continue
		}
		if matches := urlRe.FindStringSubmatch(line); len(matches) > 1 {
			current.URL = matches[1]
		}
		if matches := sha256Re.FindStringSubmatch(line); len(matches) > 1 {
			current.SHA256 = matches[1]
		}
		if line == "end" {
			if current.URL != "" {
				spec.Assets = append(spec.Assets, *current)
			}
			block = ""
			current = nil
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	if className == "" {
		return nil, fmt.Errorf("no formula class found")
	}
	spec.Name = fromClassName(className)

	return spec, nil
}

// fromClassName turns a Ruby class name back into a package name,
// "RmrfNightly" becomes "rmrf-nightly"
func fromClassName(className string) string {
	var b strings.Builder
	for i, r := range className {
		if unicode.IsUpper(r) {
			if i > 0 {
				b.WriteByte('-')
			}
			r = unicode.ToLower(r)
		}
		b.WriteRune(r)
	}
	return b.String()
}

func unquote(s string) string {
	r := strings.NewReplacer(`\"`, `"`, `\\`, `\`, `\#{`, "#{")
	return r.Replace(s)
}
