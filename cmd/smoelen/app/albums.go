package app

import (
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/google/uuid"
	"github.com/kroma-labs/smoelen/api"
	"github.com/spf13/cobra"
)

// ErrBadOrder is returned for an "albums order" argument that is not
// <album-id>=<position>.
var ErrBadOrder = errors.New("expected <album-id>=<position>")

func newAlbumsCommand(opts *GlobalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "albums",
		Aliases: []string{"album"},
		Short:   "List and manage albums",
	}
	cmd.AddCommand(
		newAlbumsListCommand(opts),
		newAlbumsShowCommand(opts),
		newAlbumsCreateCommand(opts),
		newAlbumsOrderCommand(opts),
		newAlbumsPreviewCommand(opts),
	)
	return cmd
}

func newAlbumsListCommand(opts *GlobalOptions) *cobra.Command {
	return &cobra.Command{
		Use:     "ls",
		Aliases: []string{"list"},
		Short:   "List albums",
		Args:    cobra.NoArgs,
		RunE: withSession(opts, func(cmd *cobra.Command, _ []string, s *session) error {
			client, err := s.api(cmd.Context())
			if err != nil {
				return err
			}
			resp, err := client.Albums.GetAlbums(cmd.Context())
			if err != nil {
				return wrap("list albums", err)
			}
			albums, err := resp.Result()
			if err != nil {
				return wrap("list albums", err)
			}

			if len(albums) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No albums.")
				return nil
			}
			sort.SliceStable(albums, func(i, j int) bool { return albums[i].Order < albums[j].Order })

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 3, ' ', 0)
			fmt.Fprintln(w, "ID\tORDER\tNAME\tDESCRIPTION")
			for _, a := range albums {
				fmt.Fprintf(w, "%s\t%d\t%s\t%s\n", a.ID, a.Order, a.Name, a.Description)
			}
			return w.Flush()
		}),
	}
}

func newAlbumsShowCommand(opts *GlobalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "show <album-id>",
		Short: "Show an album and its items",
		Args:  cobra.ExactArgs(1),
		RunE: withSession(opts, func(cmd *cobra.Command, args []string, s *session) error {
			albumID, err := parseID("album", args[0])
			if err != nil {
				return err
			}
			client, err := s.api(cmd.Context())
			if err != nil {
				return err
			}
			resp, err := client.Albums.GetAlbum(cmd.Context(), albumID)
			if err != nil {
				return wrap("show album", err)
			}
			album, err := resp.Result()
			if err != nil {
				return wrap("show album", err)
			}
			return printAlbum(cmd.OutOrStdout(), album)
		}),
	}
}

func printAlbum(out io.Writer, a api.Album) error {
	fmt.Fprintf(out, "%s  %s\n", a.ID, a.Name)
	if a.Description != "" {
		fmt.Fprintln(out, a.Description)
	}
	fmt.Fprintln(out)

	if len(a.Items) == 0 {
		fmt.Fprintln(out, "No items.")
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 3, ' ', 0)
	fmt.Fprintln(w, "ID\tTYPE\tDATE\tSIZE\tPREVIEW")
	for _, item := range a.Items {
		preview := ""
		if a.Preview != nil && a.Preview.ID == item.ID {
			preview = "*"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%dx%d\t%s\n",
			item.ID, item.Type, item.Date.Format("2006-01-02 15:04"), item.Width, item.Height, preview)
	}
	return w.Flush()
}

func newAlbumsCreateCommand(opts *GlobalOptions) *cobra.Command {
	var body api.AlbumCreate

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create an album (admin)",
		Args:  cobra.NoArgs,
		RunE: withSession(opts, func(cmd *cobra.Command, _ []string, s *session) error {
			client, err := s.api(cmd.Context())
			if err != nil {
				return err
			}
			resp, err := client.Albums.CreateAlbum(cmd.Context(), body)
			if err != nil {
				return wrap("create album", err)
			}
			album, err := resp.Result()
			if err != nil {
				return wrap("create album", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), album.ID)
			return nil
		}),
	}

	cmd.Flags().StringVar(&body.Name, "name", "", "album name")
	cmd.Flags().StringVar(&body.Description, "description", "", "album description")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}

func newAlbumsOrderCommand(opts *GlobalOptions) *cobra.Command {
	return &cobra.Command{
		Use:     "order <album-id>=<position>...",
		Short:   "Set album positions (admin)",
		Example: "  smoelen albums order 6f1c3f57-52a4-4a8e-9f55-0c5a0a7d8d11=1 a4d1e1a2-7e0b-4d39-9b5e-3b2b1a9c1e22=2",
		Args:    cobra.MinimumNArgs(1),
		RunE: withSession(opts, func(cmd *cobra.Command, args []string, s *session) error {
			orders, err := parseOrders(args)
			if err != nil {
				return err
			}
			client, err := s.api(cmd.Context())
			if err != nil {
				return err
			}
			if _, err := client.Albums.OrderAlbums(cmd.Context(), orders); err != nil {
				return wrap("order albums", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Reordered %d albums.\n", len(orders))
			return nil
		}),
	}
}

func parseOrders(args []string) ([]api.AlbumOrder, error) {
	orders := make([]api.AlbumOrder, 0, len(args))
	for _, arg := range args {
		rawID, rawPos, ok := strings.Cut(arg, "=")
		if !ok {
			return nil, fmt.Errorf("%q: %w", arg, ErrBadOrder)
		}
		id, err := uuid.Parse(rawID)
		if err != nil {
			return nil, fmt.Errorf("%q: %w", arg, ErrBadOrder)
		}
		pos, err := strconv.Atoi(rawPos)
		if err != nil {
			return nil, fmt.Errorf("%q: %w", arg, ErrBadOrder)
		}
		orders = append(orders, api.AlbumOrder{ID: id, Order: pos})
	}
	return orders, nil
}

func newAlbumsPreviewCommand(opts *GlobalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "preview <album-id> <item-id>",
		Short: "Set the album preview (admin)",
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
			if _, err := client.Albums.SetPreview(cmd.Context(), albumID, itemID); err != nil {
				return wrap("set preview", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Preview set.")
			return nil
		}),
	}
}

func parseID(kind, raw string) (uuid.UUID, error) {
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid %s id %q: %w", kind, raw, err)
	}
	return id, nil
}
