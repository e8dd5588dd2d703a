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

// tar2rpm reads a tar stream and repacks its entries into a single rpm.
package main

import (
	"fmt"
	"io"
	"math"
	"os"
	"time"

	"github.com/packhouse/rpmpack"
	"github.com/packhouse/rpmpack/compressor"
	"github.com/packhouse/rpmpack/digest"
	"github.com/spf13/cobra"
)

// dashStdinStdout is the pseudo-filename for stdin/stdout.
const dashStdinStdout = "-"

var (
	provides, obsoletes, suggests, recommends, requires, conflicts []string

	name        string
	version     string
	release     string
	epoch       uint64
	arch        string
	buildTime   int64
	compress    string
	digestAlgo  string
	osName      string
	description string
	vendor      string
	packager    string
	group       string
	url         string
	licence     string

	prein, postin, preun, postun string

	outputfile string
	keyring    string
	passphrase string
)

func main() {
	root := &cobra.Command{
		Use:   "tar2rpm [OPTION]... [TARFILE]",
		Short: "read tar content from stdin or TARFILE and write an rpm",
		Long: "Read tar content from stdin, or TARFILE if present. Write rpm to stdout, or the\n" +
			"file given by --file. If a filename is '" + dashStdinStdout + "' use stdin/stdout without printing a notice.",
		Args: cobra.MaximumNArgs(1),
		RunE: run,
	}
	flags := root.Flags()
	flags.StringVar(&name, "name", "", "the package name")
	flags.StringVar(&version, "version", "", "the package version")
	flags.StringVar(&release, "release", "", "the rpm release")
	flags.Uint64Var(&epoch, "epoch", 0, "the rpm epoch")
	flags.StringVar(&arch, "arch", "noarch", "the rpm architecture")
	flags.Int64Var(&buildTime, "build_time", 0, "the build_time unix timestamp")
	flags.StringVar(&compress, "compressor", string(compressor.XZ), "the rpm payload compressor (xz, lzma, gzip, zstd)")
	flags.StringVar(&digestAlgo, "digest", "sha256", "the per-file digest algorithm (md5, sha256)")
	flags.StringVar(&osName, "os", "linux", "the rpm os")
	flags.StringVar(&description, "description", "", "the rpm summary and description")
	flags.StringVar(&vendor, "vendor", "", "the rpm vendor")
	flags.StringVar(&packager, "packager", "", "the rpm packager")
	flags.StringVar(&group, "group", "", "the rpm group")
	flags.StringVar(&url, "url", "", "the rpm url")
	flags.StringVar(&licence, "licence", "", "the rpm licence name")

	flags.StringVar(&prein, "prein", "", "prein scriptlet contents (not filename)")
	flags.StringVar(&postin, "postin", "", "postin scriptlet contents (not filename)")
	flags.StringVar(&preun, "preun", "", "preun scriptlet contents (not filename)")
	flags.StringVar(&postun, "postun", "", "postun scriptlet contents (not filename)")

	flags.StringSliceVar(&provides, "provides", nil, "rpm provides values, name or name=version")
	flags.StringSliceVar(&obsoletes, "obsoletes", nil, "rpm obsoletes values, name or name=version")
	flags.StringSliceVar(&suggests, "suggests", nil, "rpm suggests values, name or name=version")
	flags.StringSliceVar(&recommends, "recommends", nil, "rpm recommends values, name or name=version")
	flags.StringSliceVar(&requires, "requires", nil, "rpm requires values, name or name=version")
	flags.StringSliceVar(&conflicts, "conflicts", nil, "rpm conflicts values, name or name=version")

	flags.StringVar(&outputfile, "file", "", "write rpm to `RPMFILE` instead of stdout")
	flags.StringVar(&keyring, "keyring", "", "sign the package with the first signing key in this OpenPGP keyring file")
	flags.StringVar(&passphrase, "passphrase", "", "passphrase for --keyring, if it is encrypted")

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, args []string) error {
	if name == "" || version == "" {
		return fmt.Errorf("name and version are required")
	}
	if epoch > math.MaxUint32 {
		return fmt.Errorf("epoch has to be less than %d", uint32(math.MaxUint32))
	}
	var buildTimeStamp time.Time
	if buildTime != 0 {
		buildTimeStamp = time.Unix(buildTime, 0)
	}

	var algo digest.Algo
	switch digestAlgo {
	case "md5":
		algo = digest.MD5
	case "sha256":
		algo = digest.SHA256
	default:
		return fmt.Errorf("unknown --digest %q", digestAlgo)
	}

	notice := ""
	var in io.Reader
	switch len(args) {
	case 0:
		notice = "reading tar content from stdin"
		in = os.Stdin
	case 1:
		if args[0] == dashStdinStdout {
			in = os.Stdin
		} else {
			f, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("open %s for reading: %w", args[0], err)
			}
			defer f.Close()
			in = f
		}
	}

	w := os.Stdout
	if outputfile != "" && outputfile != dashStdinStdout {
		f, err := os.Create(outputfile)
		if err != nil {
			return fmt.Errorf("open %s for writing: %w", outputfile, err)
		}
		defer f.Close()
		w = f
	} else if outputfile == "" {
		if notice != "" {
			notice += ", "
		}
		notice += "writing rpm to stdout"
	}
	if notice != "" {
		fmt.Fprintln(os.Stderr, "tar2rpm: "+notice+".")
	}

	var signer digest.Signer
	if keyring != "" {
		s, err := digest.LoadSigningKey(keyring, passphrase)
		if err != nil {
			return fmt.Errorf("load signing key from %s: %w", keyring, err)
		}
		signer = s
	}

	r, err := rpmpack.FromTar(in, rpmpack.RPMMetaData{
		Name:        name,
		Version:     version,
		Release:     release,
		Epoch:       uint32(epoch),
		BuildTime:   buildTimeStamp,
		Arch:        arch,
		OS:          osName,
		Vendor:      vendor,
		Packager:    packager,
		Group:       group,
		URL:         url,
		Licence:     licence,
		Description: description,
		Compressor:  compressor.Format(compress),
		DigestAlgo:  algo,
		Signer:      signer,
		Provides:    provides,
		Obsoletes:   obsoletes,
		Suggests:    suggests,
		Recommends:  recommends,
		Requires:    requires,
		Conflicts:   conflicts,
	})
	if err != nil {
		return fmt.Errorf("tar2rpm: %w", err)
	}

	r.AddPrein(prein)
	r.AddPostin(postin)
	r.AddPreun(preun)
	r.AddPostun(postun)

	if err := r.Write(w); err != nil {
		return fmt.Errorf("rpm write error: %w", err)
	}
	return nil
}
