package app

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/kroma-labs/smoelen/api"
	"github.com/kroma-labs/smoelen/httpclient"
	"github.com/spf13/cobra"
)

func newItemsCommand(opts *GlobalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "items",
		Aliases: []string{"item"},
		Short:   "Upload, download and delete album items",
	}
	cmd.AddCommand(
		newItemsUploadCommand(opts),
		newItemsRemoveCommand(opts),
		newItemsGetCommand(opts),
	)
	return cmd
}

func newItemsUploadCommand(opts *GlobalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "upload <album-id> <file>...",
		Short: "Upload photos and videos into an album (admin)",
		Args:  cobra.MinimumNArgs(2),
		RunE: withSession(opts, func(cmd *cobra.Command, args []string, s *session) error {
			albumID, err := parseID("album", args[0])
			if err != nil {
				return err
			}

			files := make([]httpclient.File, 0, len(args)-1)
			for _, path := range args[1:] {
				if _, err := os.Stat(path); err != nil {
					return err
				}
				files = append(files, httpclient.OpenFile(path))
			}

			client, err := s.api(cmd.Context(), httpclient.WithConfig(httpclient.UploadConfig()))
			if err != nil {
				return err
			}
			resp, err := client.Items.UploadItems(cmd.Context(), albumID, api.BodyUploadItems{Items: files})
			if err != nil {
				return wrap("upload items", err)
			}
			items, err := resp.Result()
			if err != nil {
				return wrap("upload items", err)
			}
			for _, item := range items {
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", item.ID, item.Type)
			}
			return nil
		}),
	}
}

func newItemsRemoveCommand(opts *GlobalOptions) *cobra.Command {
	return &cobra.Command{
		Use:     "rm <album-id> <item-id>...",
		Aliases: []string{"delete"},
		Short:   "Delete items from an album (admin)",
		Args:    cobra.MinimumNArgs(2),
		RunE: withSession(opts, func(cmd *cobra.Command, args []string, s *session) error {
			albumID, err := parseID("album", args[0])
			if err != nil {
				return err
			}
			ids := make([]uuid.UUID, 0, len(args)-1)
			for _, raw := range args[1:] {
				id, err := parseID("item", raw)
				if err != nil {
					return err
				}
				ids = append(ids, id)
			}

			client, err := s.api(cmd.Context())
			if err != nil {
				return err
			}
			resp, err := client.Items.DeleteItems(cmd.Context(), albumID, ids)
			if err != nil {
				return wrap("delete items", err)
			}
			album, err := resp.Result()
			if err != nil {
				return wrap("delete items", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted %d items, %d left.\n", len(ids), len(album.Items))
			return nil
		}),
	}
}

func newItemsGetCommand(opts *GlobalOptions) *cobra.Command {
	var (
		output string
		cover  bool
	)

	cmd := &cobra.Command{
		Use:   "get <album-id> <item-id>",
		Short: "Download an item, or its cover image",
		Args:  cobra.ExactArgs(2),
		RunE: withSession(opts, func(cmd *cobra.Command, args []string, s *session) error {
			albumID, err := parseID("album", args[0])
			if err != nil {
				return err
			}
			itemID, err := parseID("item", args[1])
			if err != nil {
				return err
			}

			client, err := s.api(cmd.Context())
			if err != nil {
				return err
			}
			albumResp, err := client.Albums.GetAlbum(cmd.Context(), albumID)
			if err != nil {
				return wrap("get album", err)
			}
			album, err := albumResp.Result()
			if err != nil {
				return wrap("get album", err)
			}

			var item *api.Item
			for i := range album.Items {
				if album.Items[i].ID == itemID {
					item = &album.Items[i]
					break
				}
			}
			if item == nil {
				return fmt.Errorf("item %s is not in album %s", itemID, albumID)
			}

			resp, err := client.Items.Download(cmd.Context(), *item, cover)
			if err != nil {
				return wrap("download item", err)
			}
			data, err := resp.Result()
			if err != nil {
				return wrap("download item", err)
			}

			if output == "" {
				output = itemID.String() + extension(resp.Header.Get("Content-Type"))
			}
			if err := os.WriteFile(output, data, 0o644); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Saved %s (%d bytes).\n", filepath.Clean(output), len(data))
			return nil
		}),
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "file to write (default: <item-id> with an extension from the content type)")
	cmd.Flags().BoolVar(&cover, "cover", false, "download the cover image instead of the original")
	return cmd
}
