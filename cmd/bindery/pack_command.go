package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/cobra"

	"bindery/internal/config"
	"bindery/internal/fileutil"
	"bindery/internal/pack"
)

// itemDescription is the TOML input for `bindery pack`. Fields use arrays of
// tables so metadata order in the file carries into the manifest.
type itemDescription struct {
	Label       string                  `toml:"label"`
	Status      string                  `toml:"status"`
	Enabled     *bool                   `toml:"enabled"`
	EmbargoDate string                  `toml:"embargo_date"`
	Fields      []fieldDescription      `toml:"fields"`
	Attachments []attachmentDescription `toml:"attachments"`
}

type fieldDescription struct {
	Name   string   `toml:"name"`
	Values []string `toml:"values"`
}

type attachmentDescription struct {
	File             string                  `toml:"file"`
	Label            string                  `toml:"label"`
	FileAccess       string                  `toml:"file_access"`
	DerivativeAccess string                  `toml:"derivative_access"`
	Fields           []fieldDescription      `toml:"fields"`
	Identifiers      []identifierDescription `toml:"identifiers"`
}

type identifierDescription struct {
	Value string `toml:"value"`
	Type  string `toml:"type"`
}

func newPackCommand(ctx *commandContext) *cobra.Command {
	var itemPath string
	var outPath string

	cmd := &cobra.Command{
		Use:   "pack",
		Short: "Build a package archive from a TOML item description",
		RunE: func(cmd *cobra.Command, args []string) error {
			itemPath = strings.TrimSpace(itemPath)
			if itemPath == "" {
				return errors.New("an item description is required (--item)")
			}
			expanded, err := config.ExpandPath(itemPath)
			if err != nil {
				return err
			}

			desc, err := loadItemDescription(expanded)
			if err != nil {
				return err
			}

			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			dest := strings.TrimSpace(outPath)
			if dest == "" {
				base := strings.TrimSuffix(filepath.Base(expanded), filepath.Ext(expanded))
				dest = filepath.Join(cfg.Paths.PackageDir, base+".zip")
			} else if dest, err = config.ExpandPath(dest); err != nil {
				return err
			}

			builder, err := buildFromDescription(desc, filepath.Dir(expanded))
			if err != nil {
				return err
			}
			if err := builder.Materialize(dest); err != nil {
				return err
			}

			checksum, err := fileutil.Checksum(dest)
			if err != nil {
				return fmt.Errorf("checksum package: %w", err)
			}

			out := cmd.OutOrStdout()
			if ctx.jsonOutput() {
				return writeJSON(cmd, map[string]any{
					"package":     dest,
					"checksum":    checksum,
					"attachments": len(desc.Attachments),
				})
			}
			fmt.Fprintf(out, "Wrote package to %s\n", dest)
			fmt.Fprintf(out, "SHA256: %s\n", checksum)
			return nil
		},
	}

	cmd.Flags().StringVarP(&itemPath, "item", "i", "", "TOML item description file")
	cmd.Flags().StringVarP(&outPath, "out", "o", "", "Destination archive path (defaults into the package directory)")
	return cmd
}

func loadItemDescription(path string) (*itemDescription, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read item description: %w", err)
	}
	var desc itemDescription
	if err := toml.Unmarshal(data, &desc); err != nil {
		return nil, fmt.Errorf("parse item description: %w", err)
	}
	if len(desc.Attachments) == 0 {
		return nil, errors.New("item description lists no attachments")
	}
	return &desc, nil
}

// buildFromDescription assembles a builder from the parsed description.
// Attachment file paths are resolved relative to the description's directory.
func buildFromDescription(desc *itemDescription, baseDir string) (*pack.Builder, error) {
	builder := pack.NewBuilder(desc.Label)

	switch strings.ToLower(strings.TrimSpace(desc.Status)) {
	case "":
	case "public":
		builder.SetPublic()
	case "private":
		builder.SetPrivate()
	default:
		return nil, fmt.Errorf("unknown item status %q (want public or private)", desc.Status)
	}
	if desc.Enabled != nil {
		if *desc.Enabled {
			builder.Enable()
		} else {
			builder.Disable()
		}
	}
	if raw := strings.TrimSpace(desc.EmbargoDate); raw != "" {
		date, err := time.Parse("2006-01-02", raw)
		if err != nil {
			return nil, fmt.Errorf("parse embargo date %q: %w", raw, err)
		}
		builder.SetEmbargoDate(date)
	}

	applyFields(builder.Metadata(), desc.Fields)

	for _, attDesc := range desc.Attachments {
		file := strings.TrimSpace(attDesc.File)
		if file == "" {
			builder.Discard()
			return nil, errors.New("attachment is missing a file path")
		}
		if !filepath.IsAbs(file) {
			file = filepath.Join(baseDir, file)
		}
		source, err := os.Open(file)
		if err != nil {
			builder.Discard()
			return nil, fmt.Errorf("open attachment: %w", err)
		}

		att := builder.AddAttachment(pack.NewAttachment(source, filepath.Base(file)))
		if attDesc.Label != "" {
			att.SetLabel(attDesc.Label)
		}
		if access, err := parseAccess(attDesc.FileAccess); err != nil {
			builder.Discard()
			return nil, err
		} else if access != "" {
			att.SetFileAccess(access)
		}
		if access, err := parseAccess(attDesc.DerivativeAccess); err != nil {
			builder.Discard()
			return nil, err
		} else if access != "" {
			att.SetDerivativeAccess(access)
		}
		for _, id := range attDesc.Identifiers {
			att.AddIdentifier(id.Value, id.Type)
		}
		applyFields(att.Metadata(), attDesc.Fields)
	}

	return builder, nil
}

func applyFields(fields *pack.Fields, descs []fieldDescription) {
	for _, field := range descs {
		values := make([]any, 0, len(field.Values))
		for _, value := range field.Values {
			values = append(values, value)
		}
		fields.Add(field.Name, values...)
	}
}

func parseAccess(raw string) (pack.Access, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "":
		return "", nil
	case "open":
		return pack.AccessOpen, nil
	case "campus":
		return pack.AccessCampus, nil
	case "closed":
		return pack.AccessClosed, nil
	default:
		return "", fmt.Errorf("unknown access level %q (want open, campus, or closed)", raw)
	}
}
