package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/leca/skureview/internal/api"
	"github.com/leca/skureview/internal/catalog"
	"github.com/leca/skureview/internal/export"
	"github.com/leca/skureview/internal/model"
)

func newLoginCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:     "login <email>",
		Short:   "Open a backend session and remember the identity",
		Args:    cobra.ExactArgs(1),
		Example: `  skureview login reviewer@example.com`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.sessions.Login(cmd.Context(), args[0]); err != nil {
				return userError(err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Logged in as %s\n", a.sessions.Identity())
			return nil
		},
	}
}

func newLogoutCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "End the backend session and forget the identity",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.sessions.Logout(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Logged out")
			return nil
		},
	}
}

func newWhoamiCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Print the stored identity",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := a.identity()
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), id)
			return nil
		},
	}
}

func newUploadCmd(a *app) *cobra.Command {
	var excelPath string
	var imagePaths []string

	cmd := &cobra.Command{
		Use:   "upload",
		Short: "Upload the metadata spreadsheet and its images",
		Long: `Uploads the metadata spreadsheet first, then any images. Each image is
matched to a metadata row by file name; unmatched images are reported as
orphaned.`,
		Example: `  skureview upload --excel products.xlsx --images img/*.jpg`,
		Args:    cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := a.identity()
			if err != nil {
				return err
			}
			if excelPath == "" {
				return userError(api.ValidationError("upload excel", "a metadata file is required (--excel)"))
			}
			imagePaths = append(imagePaths, args...)

			f, err := os.Open(excelPath)
			if err != nil {
				return fmt.Errorf("open %s: %w", excelPath, err)
			}
			defer f.Close()

			sum, err := a.client.UploadExcel(cmd.Context(), id, api.UploadFile{Name: excelPath, Reader: f})
			if err != nil {
				return userError(err)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s (%d records)\n", sum.Message, sum.Count)

			if len(imagePaths) == 0 {
				return nil
			}
			files := make([]api.UploadFile, 0, len(imagePaths))
			for _, p := range imagePaths {
				img, err := os.Open(p)
				if err != nil {
					return fmt.Errorf("open %s: %w", p, err)
				}
				defer img.Close()
				files = append(files, api.UploadFile{Name: p, Reader: img})
			}
			res, err := a.client.UploadImages(cmd.Context(), id, files)
			if err != nil {
				return userError(err)
			}
			renderMerges(out, res.Results)
			return nil
		},
	}

	cmd.Flags().StringVar(&excelPath, "excel", "", "Metadata spreadsheet to upload")
	cmd.Flags().StringSliceVar(&imagePaths, "images", nil, "Image files to upload")

	return cmd
}

func newSKUsCmd(a *app) *cobra.Command {
	var filter string

	cmd := &cobra.Command{
		Use:   "skus",
		Short: "List SKUs with their review counts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := a.identity()
			if err != nil {
				return err
			}
			cat := catalog.New(a.client, a.logger)
			if _, err := cat.Load(cmd.Context(), id); err != nil {
				return userError(err)
			}
			renderSKUs(cmd.OutOrStdout(), cat.Filter(filter))
			return nil
		},
	}

	cmd.Flags().StringVarP(&filter, "filter", "f", "", "Only show SKUs whose id contains this text")

	return cmd
}

func newImagesCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "images <sku>",
		Short: "List the images of one SKU, grouped by provider",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := a.identity()
			if err != nil {
				return err
			}
			images, err := a.client.ListImages(cmd.Context(), id, args[0])
			if err != nil {
				return userError(err)
			}
			out := cmd.OutOrStdout()
			renderStats(out, model.ComputeStats(images))
			renderGroups(out, model.GroupByProvider(images), a.client.ImageURL)
			return nil
		},
	}
}

func exportArgs(args []string) (api.ExportKind, string, error) {
	kind, err := api.ParseExportKind(args[0])
	if err != nil {
		return "", "", err
	}
	sku := ""
	if len(args) > 1 {
		sku = args[1]
	}
	if kind.NeedsSKU() && sku == "" {
		return "", "", fmt.Errorf("%s needs a sku id", kind)
	}
	return kind, sku, nil
}

const exportKindsHelp = "report, sku-archive, approved-archive or approved-report"

func newExportCmd(a *app) *cobra.Command {
	var stdout bool

	cmd := &cobra.Command{
		Use:   "export <kind> [sku]",
		Short: "Download a report or archive into the download directory",
		Long:  "Kinds: " + exportKindsHelp + ". sku-archive needs a sku id.",
		Example: `  skureview export report
  skureview export sku-archive A100
  skureview export approved-archive --stdout > approved.zip`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := a.identity()
			if err != nil {
				return err
			}
			kind, sku, err := exportArgs(args)
			if err != nil {
				return err
			}
			trigger := export.New(a.client, a.store, a.logger)
			if stdout {
				if _, _, err := trigger.Copy(cmd.Context(), cmd.OutOrStdout(), id, kind, sku); err != nil {
					return userError(err)
				}
				return nil
			}
			res, err := trigger.Download(cmd.Context(), id, kind, sku)
			if err != nil {
				return userError(err)
			}
			if res.Replaced {
				fmt.Fprintf(cmd.OutOrStdout(), "Replaced %s (%d bytes)\n", res.Path, res.Bytes)
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Saved %s (%d bytes)\n", res.Path, res.Bytes)
			return nil
		},
	}

	cmd.Flags().BoolVar(&stdout, "stdout", false, "Write the file to standard output instead of the download directory")

	return cmd
}

func newURLCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "url <kind> [sku]",
		Short: "Print the direct download URL of an export",
		Long:  "Kinds: " + exportKindsHelp + ".",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := a.identity()
			if err != nil {
				return err
			}
			kind, sku, err := exportArgs(args)
			if err != nil {
				return err
			}
			u, err := a.client.ExportURL(kind, id, sku)
			if err != nil {
				return userError(err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), u)
			return nil
		},
	}
}
