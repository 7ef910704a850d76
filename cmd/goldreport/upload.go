package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/networkteam/goldsuite/config"
	"github.com/networkteam/goldsuite/internal/upload"
)

func newUploadCommand(opts *rootOptions) *cobra.Command {
	var s3 config.S3Config

	cmd := &cobra.Command{
		Use:   "upload",
		Short: "Upload the reports directory to S3",
		Long: `Upload the reports directory to an S3 bucket. Flags default to the
REPORTS_S3_* and AWS_* variables used by the suite.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			merged := opts.cfg.S3
			flags := cmd.Flags()
			if flags.Changed("bucket") {
				merged.Bucket = s3.Bucket
			}
			if flags.Changed("prefix") {
				merged.Prefix = s3.Prefix
			}
			if flags.Changed("region") {
				merged.Region = s3.Region
			}
			if flags.Changed("endpoint") {
				merged.EndpointURL = s3.EndpointURL
			}
			if flags.Changed("force-path-style") {
				merged.ForcePathStyle = s3.ForcePathStyle
			}
			if !merged.Enabled() {
				return errors.New("no bucket configured: use --bucket or " + config.KeyS3Bucket)
			}

			uploader, err := upload.NewS3Uploader(upload.Options{
				Bucket:          merged.Bucket,
				Prefix:          merged.Prefix,
				Region:          merged.Region,
				EndpointURL:     merged.EndpointURL,
				ForcePathStyle:  merged.ForcePathStyle,
				AccessKeyID:     merged.AccessKeyID,
				SecretAccessKey: merged.SecretAccessKey,
				SessionToken:    merged.SessionToken,
				Logger:          opts.logger,
			})
			if err != nil {
				return err
			}

			n, err := uploader.UploadDir(cmd.Context(), opts.ReportsDir)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "Uploaded %d files to s3://%s/%s\n", n, merged.Bucket, uploader.Key(""))
			return err
		},
	}
	cmd.Flags().StringVar(&s3.Bucket, "bucket", "", "bucket name")
	cmd.Flags().StringVar(&s3.Prefix, "prefix", "", "key prefix")
	cmd.Flags().StringVar(&s3.Region, "region", "", "bucket region")
	cmd.Flags().StringVar(&s3.EndpointURL, "endpoint", "", "S3-compatible endpoint URL")
	cmd.Flags().BoolVar(&s3.ForcePathStyle, "force-path-style", false, "use path-style addressing")

	return cmd
}
