package project

import (
	"bufio"
	"encoding/json"
	"encoding/xml"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"golang.org/x/mod/modfile"
)

// Metadata is what could be learned about a project from its files. Every
// field is optional.
type Metadata struct {
	Name         string
	Version      string
	GitRemoteURL string
}

type manifestReader func(data []byte) (name, version string)

var manifestReaders = map[string]manifestReader{
	"package.json":   readJSONManifest,
	"composer.json":  readJSONManifest,
	"deno.json":      readJSONManifest,
	"go.mod":         readGoMod,
	"Cargo.toml":     readCargoToml,
	"pyproject.toml": readPyproject,
	"pom.xml":        readPom,
}

// ExtractMetadata reads the manifests listed in det, in marker order, and the
// version control remote. Parse failures leave fields empty.
func ExtractMetadata(det Detection) Metadata {
	var meta Metadata

	for _, m := range det.Present {
		read, ok := manifestReaders[m.File]
		if !ok {
			continue
		}
		data, err := os.ReadFile(filepath.Join(det.Dir, m.File))
		if err != nil {
			continue
		}
		name, version := read(data)
		if meta.Name == "" && name != "" {
			meta.Name = name
			meta.Version = version
		}
	}

	meta.GitRemoteURL = gitRemoteURL(det.Dir)
	return meta
}

func readJSONManifest(data []byte) (string, string) {
	var manifest struct {
		Name    string `json:"name"`
		Version string `json:"version"`
	}
	if err := json.Unmarshal(data, &manifest); err != nil {
		return "", ""
	}
	return strings.TrimSpace(manifest.Name), manifest.Version
}

func readGoMod(data []byte) (string, string) {
	modPath := modfile.ModulePath(data)
	if modPath == "" {
		return "", ""
	}
	base := path.Base(modPath)
	// github.com/org/repo/v2 names the repo, not "v2".
	if len(base) > 1 && base[0] == 'v' && strings.Trim(base[1:], "0123456789") == "" {
		if parent := path.Base(path.Dir(modPath)); parent != "." && parent != "/" {
			base = parent
		}
	}
	return base, ""
}

func readCargoToml(data []byte) (string, string) {
	var cargo struct {
		Package struct {
			Name    string `toml:"name"`
			Version string `toml:"version"`
		} `toml:"package"`
	}
	if err := toml.Unmarshal(data, &cargo); err != nil {
		return "", ""
	}
	return cargo.Package.Name, cargo.Package.Version
}

func readPyproject(data []byte) (string, string) {
	var py struct {
		Project struct {
			Name    string `toml:"name"`
			Version string `toml:"version"`
		} `toml:"project"`
		Tool struct {
			Poetry struct {
				Name    string `toml:"name"`
				Version string `toml:"version"`
			} `toml:"poetry"`
		} `toml:"tool"`
	}
	if err := toml.Unmarshal(data, &py); err != nil {
		return "", ""
	}
	if py.Project.Name != "" {
		return py.Project.Name, py.Project.Version
	}
	return py.Tool.Poetry.Name, py.Tool.Poetry.Version
}

func readPom(data []byte) (string, string) {
	var pom struct {
		ArtifactID string `xml:"artifactId"`
		Name       string `xml:"name"`
		Version    string `xml:"version"`
	}
	if err := xml.Unmarshal(data, &pom); err != nil {
		return "", ""
	}
	name := strings.TrimSpace(pom.Name)
	if name == "" {
		name = strings.TrimSpace(pom.ArtifactID)
	}
	return name, strings.TrimSpace(pom.Version)
}

// gitRemoteURL returns the origin URL (or the first remote) from the
// repository's config. Worktrees whose .git is a file are followed.
func gitRemoteURL(dir string) string {
	gitDir := filepath.Join(dir, ".git")
	info, err := os.Stat(gitDir)
	if err != nil {
		return ""
	}
	if !info.IsDir() {
		data, err := os.ReadFile(gitDir)
		if err != nil {
			return ""
		}
		line := strings.TrimSpace(string(data))
		if !strings.HasPrefix(line, "gitdir:") {
			return ""
		}
		gitDir = strings.TrimSpace(strings.TrimPrefix(line, "gitdir:"))
		if !filepath.IsAbs(gitDir) {
			gitDir = filepath.Join(dir, gitDir)
		}
		// Linked worktrees keep the shared config in the common dir.
		if common, err := os.ReadFile(filepath.Join(gitDir, "commondir")); err == nil {
			c := strings.TrimSpace(string(common))
			if !filepath.IsAbs(c) {
				c = filepath.Join(gitDir, c)
			}
			gitDir = c
		}
	}

	f, err := os.Open(filepath.Join(gitDir, "config"))
	if err != nil {
		return ""
	}
	defer f.Close()
	return parseGitRemote(bufio.NewScanner(f))
}

func parseGitRemote(sc *bufio.Scanner) string {
	var (
		section string
		first   string
	)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || line[0] == '#' || line[0] == ';' {
			continue
		}
		if strings.HasPrefix(line, "[") {
			section = strings.Trim(line, "[]")
			continue
		}
		if !strings.HasPrefix(section, "remote ") {
			continue
		}
		key, value, ok := strings.Cut(line, "=")
		if !ok || strings.TrimSpace(key) != "url" {
			continue
		}
		value = strings.TrimSpace(value)
		if section == `remote "origin"` {
			return value
		}
		if first == "" {
			first = value
		}
	}
	return first
}
