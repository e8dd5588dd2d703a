// Copyright 2019 Google LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// rpmpack packs a flat list of filesystem paths into a single rpm.
package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/packhouse/rpmpack"
	"github.com/spf13/cobra"
)

var (
	name       string
	version    string
	release    string
	outputfile string

	owner    string
	group    string
	filemode string
	dirmode  string
	mtime    uint32
)

func main() {
	root := &cobra.Command{
		Use:   "rpmpack [OPTION]... FILE...",
		Short: "pack a flat list of files into an rpm",
		Args:  cobra.MinimumNArgs(1),
		RunE:  run,
	}
	flags := root.Flags()
	flags.StringVar(&name, "name", "rpmsample", "the package name")
	flags.StringVar(&version, "version", "0", "the package version")
	flags.StringVar(&release, "release", "0", "the rpm release")
	flags.StringVar(&outputfile, "file", "", "write rpm to `FILE` instead of stdout")
	flags.StringVar(&owner, "owner", "root", "use `NAME` as owner")
	flags.StringVar(&group, "group", "root", "use `NAME` as group")
	flags.StringVar(&filemode, "filemode", "0644", "octal mode of files; 0 reads the permission bits from the files")
	flags.StringVar(&dirmode, "dirmode", "0755", "octal mode of dirs; 0 reads the permission bits from the dirs")
	flags.Uint32Var(&mtime, "mtime", 0, "change timestamp of files")

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, args []string) error {
	fmode, err := parseOctal(filemode)
	if err != nil {
		return err
	}
	dmode, err := parseOctal(dirmode)
	if err != nil {
		return err
	}

	w := os.Stdout
	if outputfile != "" {
		f, err := os.Create(outputfile)
		if err != nil {
			return fmt.Errorf("open %s for writing: %w", outputfile, err)
		}
		defer f.Close()
		w = f
	}

	return rpmpack.FromFiles(w, args,
		rpmpack.RPMMetaData{Name: name, Version: version, Release: release},
		rpmpack.Opts{
			Owner:    owner,
			Group:    group,
			FileMode: fmode,
			DirMode:  dmode,
			Mtime:    mtime,
		})
}

func parseOctal(v string) (uint, error) {
	if v == "" {
		return 0, nil
	}
	m, err := strconv.ParseUint(v, 8, 32)
	if err != nil {
		return 0, fmt.Errorf("parse mode %q as octal: %w", v, err)
	}
	return uint(m), nil
}
