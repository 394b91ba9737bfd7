package project

import (
	"os"
)

// Kind names the ecosystem a project marker belongs to.
type Kind string

const (
	KindGit       Kind = "git"
	KindMercurial Kind = "mercurial"
	KindSVN       Kind = "svn"
	KindGo        Kind = "go"
	KindNode      Kind = "node"
	KindDeno      Kind = "deno"
	KindRust      Kind = "rust"
	KindPython    Kind = "python"
	KindJava      Kind = "java"
	KindKotlin    Kind = "kotlin"
	KindPHP       Kind = "php"
	KindRuby      Kind = "ruby"
	KindElixir    Kind = "elixir"
	KindSwift     Kind = "swift"
	KindDart      Kind = "dart"
	KindCMake     Kind = "cmake"
	KindMake      Kind = "make"
	KindDocker    Kind = "docker"
)

// Marker is a file or directory whose presence is evidence of a project root.
type Marker struct {
	File   string
	Kind   Kind
	Weight float64
}

// Markers is ordered by descending weight; among equal weights the earlier
// entry wins.
var Markers = []Marker{
	{File: ".git", Kind: KindGit, Weight: 1.0},
	{File: ".hg", Kind: KindMercurial, Weight: 0.95},
	{File: ".svn", Kind: KindSVN, Weight: 0.9},
	{File: "go.mod", Kind: KindGo, Weight: 0.9},
	{File: "package.json", Kind: KindNode, Weight: 0.9},
	{File: "Cargo.toml", Kind: KindRust, Weight: 0.9},
	{File: "deno.json", Kind: KindDeno, Weight: 0.85},
	{File: "pyproject.toml", Kind: KindPython, Weight: 0.85},
	{File: "pom.xml", Kind: KindJava, Weight: 0.85},
	{File: "build.gradle", Kind: KindJava, Weight: 0.85},
	{File: "build.gradle.kts", Kind: KindKotlin, Weight: 0.85},
	{File: "composer.json", Kind: KindPHP, Weight: 0.85},
	{File: "mix.exs", Kind: KindElixir, Weight: 0.85},
	{File: "Package.swift", Kind: KindSwift, Weight: 0.85},
	{File: "pubspec.yaml", Kind: KindDart, Weight: 0.85},
	{File: "Gemfile", Kind: KindRuby, Weight: 0.8},
	{File: "setup.py", Kind: KindPython, Weight: 0.8},
	{File: "requirements.txt", Kind: KindPython, Weight: 0.6},
	{File: "CMakeLists.txt", Kind: KindCMake, Weight: 0.6},
	{File: "Makefile", Kind: KindMake, Weight: 0.4},
	{File: "Dockerfile", Kind: KindDocker, Weight: 0.3},
}

// Detection is the marker evidence found in one directory.
type Detection struct {
	Dir     string
	Best    Marker
	Present []Marker
}

// Confidence is the weight of the single best marker, or 0.
func (d Detection) Confidence() float64 {
	return d.Best.Weight
}

// Tags lists the distinct kinds present, best marker first.
func (d Detection) Tags() []string {
	seen := make(map[Kind]bool)
	tags := []string{}
	add := func(k Kind) {
		if k == "" || seen[k] {
			return
		}
		seen[k] = true
		tags = append(tags, string(k))
	}
	add(d.Best.Kind)
	for _, m := range d.Present {
		add(m.Kind)
	}
	return tags
}

// detect inspects dir against the marker table. An unreadable directory
// yields an empty detection.
func detect(readDir func(string) ([]os.DirEntry, error), dir string) Detection {
	det := Detection{Dir: dir}

	entries, err := readDir(dir)
	if err != nil {
		return det
	}

	names := make(map[string]bool, len(entries))
	for _, e := range entries {
		names[e.Name()] = true
	}

	for _, m := range Markers {
		if !names[m.File] {
			continue
		}
		det.Present = append(det.Present, m)
		if m.Weight > det.Best.Weight {
			det.Best = m
		}
	}
	return det
}
