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

// rpmsample creates an rpm file with some known files, which can be used
// to test rpmpack's output against other rpm implementations. It is also
// an instructive example for using rpmpack.
package main

import (
	"fmt"
	"os"

	"github.com/packhouse/rpmpack"
	"github.com/packhouse/rpmpack/digest"
	"github.com/spf13/cobra"
)

var (
	keyring    string
	passphrase string
)

func main() {
	root := &cobra.Command{
		Use:   "rpmsample",
		Short: "write a sample rpm, exercising every file type, to stdout",
		RunE:  run,
	}
	root.Flags().StringVar(&keyring, "keyring", "", "sign the package with the first signing key in this OpenPGP keyring file")
	root.Flags().StringVar(&passphrase, "passphrase", "", "passphrase for --keyring, if it is encrypted")

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, args []string) error {
	r, err := rpmpack.NewRPM(rpmpack.RPMMetaData{
		Name:    "rpmsample",
		Version: "0.1",
		Release: "A",
		Arch:    "noarch",
	})
	if err != nil {
		return err
	}

	r.AddFile(rpmpack.RPMFile{
		Name:  "/var/lib/rpmpack",
		Mode:  040755,
		Owner: "root",
		Group: "root",
	})
	r.AddFile(rpmpack.RPMFile{
		Name:  "/var/lib/rpmpack/sample.txt",
		Body:  []byte("testsample\n"),
		Mode:  0600,
		Owner: "root",
		Group: "root",
	})
	r.AddFile(rpmpack.RPMFile{
		Name:  "/var/lib/rpmpack/sample2.txt",
		Body:  []byte("testsample2\n"),
		Mode:  0644,
		Owner: "root",
		Group: "root",
	})
	r.AddFile(rpmpack.RPMFile{
		Name:  "/var/lib/rpmpack/sample3_link.txt",
		Body:  []byte("/var/lib/rpmpack/sample.txt"),
		Mode:  0120777,
		Owner: "root",
		Group: "root",
	})
	r.AddFile(rpmpack.RPMFile{
		Name:  "/var/lib/rpmpack/sample4_ghost.txt",
		Mode:  0644,
		Owner: "root",
		Group: "root",
		Type:  rpmpack.GhostFile,
	})
	r.AddFile(rpmpack.RPMFile{
		Name:  "/var/lib/thisdoesnotexist/sample.txt",
		Mode:  0644,
		Body:  []byte("testsample\n"),
		Owner: "root",
		Group: "root",
	})

	if keyring != "" {
		signer, err := digest.LoadSigningKey(keyring, passphrase)
		if err != nil {
			return fmt.Errorf("load signing key from %s: %w", keyring, err)
		}
		r.Signer = signer
	}

	if err := r.Write(os.Stdout); err != nil {
		return fmt.Errorf("write failed: %w", err)
	}
	return nil
}
