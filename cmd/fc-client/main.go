package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/thorli9527/file-cloud/pkg/client"
	"github.com/thorli9527/file-cloud/pkg/log"
	"github.com/thorli9527/file-cloud/pkg/models"
)

const (
	defaultServerURL = "http://127.0.0.1:8080"
	requestTimeout   = 5 * time.Minute
)

func usage() {
	fmt.Fprintf(os.Stderr, `Usage: fc-client [flags] <command> [args]

Commands:
  buckets                                 List buckets
  mkbucket <name> <quota>                 Create a bucket
  rmbucket <bucket-id>                    Delete a bucket
  mkuser <name> <password>                Create a user
  grant <user-id> <bucket-id> <right>     Grant read, write or readwrite
  mkdir <bucket-id> <parent-id> <name>    Create a directory
  ls <bucket-id> <path-id>                List a directory
  put <bucket-id> <path> <local-file>     Upload a file
  get <file-id> <local-file>              Download a file
  get-dir <path-id> <local-zip>           Download a directory as zip
  size <path-id>                          Sub-tree size in bytes
  rmdir <path-id>                         Delete a directory

Flags:
`)
	flag.PrintDefaults()
}

func main() {
	serverURL := flag.String("server", defaultServerURL, "Server URL")
	userName := flag.String("user", "", "User name")
	password := flag.String("password", "", "Password")
	flag.Usage = usage
	flag.Parse()

	args := flag.Args()
	if len(args) == 0 {
		usage()
		os.Exit(2)
	}

	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()

	c := client.New(*serverURL)
	if *userName != "" {
		if err := c.Login(ctx, *userName, *password); err != nil {
			log.Fatal().Err(err).Msg("Login failed")
		}
	}

	if err := run(ctx, c, args); err != nil {
		log.Fatal().Err(err).Str("command", args[0]).Msg("Command failed")
	}
}

//nolint:cyclop // flat command dispatch
func run(ctx context.Context, c *client.Client, args []string) error {
	switch cmd, rest := args[0], args[1:]; cmd {
	case "buckets":
		buckets, err := c.ListBuckets(ctx, 0, 0)
		if err != nil {
			return err
		}
		for _, b := range buckets {
			fmt.Printf("%d\t%s\tquota=%d used=%d pub_read=%t pub_write=%t\n",
				b.ID, b.Name, b.Quota, b.CurrentQuota, b.PubRead, b.PubWrite)
		}
		return nil

	case "mkbucket":
		if len(rest) != 2 {
			return fmt.Errorf("mkbucket needs <name> <quota>")
		}
		quota, err := strconv.ParseInt(rest[1], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid quota: %w", err)
		}
		bucket, err := c.CreateBucket(ctx, rest[0], quota, false, false)
		if err != nil {
			return err
		}
		fmt.Printf("created bucket %d\n", bucket.ID)
		return nil

	case "rmbucket":
		id, err := parseID(rest, 0, "bucket-id")
		if err != nil {
			return err
		}
		return c.DeleteBucket(ctx, id)

	case "mkuser":
		if len(rest) != 2 {
			return fmt.Errorf("mkuser needs <name> <password>")
		}
		user, err := c.CreateUser(ctx, rest[0], rest[1], false)
		if err != nil {
			return err
		}
		fmt.Printf("created user %d\n", user.ID)
		return nil

	case "grant":
		if len(rest) != 3 {
			return fmt.Errorf("grant needs <user-id> <bucket-id> <right>")
		}
		userID, err := parseID(rest, 0, "user-id")
		if err != nil {
			return err
		}
		bucketID, err := parseID(rest, 1, "bucket-id")
		if err != nil {
			return err
		}
		return c.GrantRight(ctx, userID, bucketID, models.RightLevel(rest[2]))

	case "mkdir":
		if len(rest) != 3 {
			return fmt.Errorf("mkdir needs <bucket-id> <parent-id> <name>")
		}
		bucketID, err := parseID(rest, 0, "bucket-id")
		if err != nil {
			return err
		}
		parentID, err := parseID(rest, 1, "parent-id")
		if err != nil {
			return err
		}
		node, err := c.Mkdir(ctx, bucketID, parentID, rest[2])
		if err != nil {
			return err
		}
		fmt.Printf("created directory %d (%s)\n", node.ID, node.FullPath)
		return nil

	case "ls":
		if len(rest) != 2 {
			return fmt.Errorf("ls needs <bucket-id> <path-id>")
		}
		bucketID, err := parseID(rest, 0, "bucket-id")
		if err != nil {
			return err
		}
		pathID, err := parseID(rest, 1, "path-id")
		if err != nil {
			return err
		}
		page, err := c.Browse(ctx, bucketID, pathID, models.BrowseCursor{}, 0)
		if err != nil {
			return err
		}
		for _, e := range page.Entries {
			fmt.Printf("%d\t%s\t%s\t%d\n", e.ID, e.FileType, e.Name, e.Size)
		}
		return nil

	case "put":
		if len(rest) != 3 {
			return fmt.Errorf("put needs <bucket-id> <path> <local-file>")
		}
		bucketID, err := parseID(rest, 0, "bucket-id")
		if err != nil {
			return err
		}
		f, err := os.Open(rest[2])
		if err != nil {
			return err
		}
		defer func() { _ = f.Close() }()

		rec, err := c.Upload(ctx, bucketID, rest[1], filepath.Base(rest[2]), f)
		if err != nil {
			return err
		}
		fmt.Printf("uploaded file %d (%d bytes, %d chunks)\n", rec.ID, rec.Size, len(rec.Items))
		return nil

	case "get":
		if len(rest) != 2 {
			return fmt.Errorf("get needs <file-id> <local-file>")
		}
		fileID, err := parseID(rest, 0, "file-id")
		if err != nil {
			return err
		}
		return saveStream(rest[1], func(w *os.File) (int64, error) {
			return c.Download(ctx, fileID, w)
		})

	case "get-dir":
		if len(rest) != 2 {
			return fmt.Errorf("get-dir needs <path-id> <local-zip>")
		}
		pathID, err := parseID(rest, 0, "path-id")
		if err != nil {
			return err
		}
		return saveStream(rest[1], func(w *os.File) (int64, error) {
			return c.DownloadDirectory(ctx, pathID, w)
		})

	case "size":
		id, err := parseID(rest, 0, "path-id")
		if err != nil {
			return err
		}
		size, err := c.DirSize(ctx, id)
		if err != nil {
			return err
		}
		fmt.Printf("%d\n", size)
		return nil

	case "rmdir":
		id, err := parseID(rest, 0, "path-id")
		if err != nil {
			return err
		}
		taskID, err := c.DeleteDirectory(ctx, id)
		if err != nil {
			return err
		}
		fmt.Printf("recorded cleanup task %d\n", taskID)
		return nil
	}

	return fmt.Errorf("unknown command %q", args[0])
}

func parseID(args []string, idx int, name string) (int64, error) {
	if idx >= len(args) {
		return 0, fmt.Errorf("missing <%s>", name)
	}
	id, err := strconv.ParseInt(args[idx], 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", name, err)
	}
	return id, nil
}

func saveStream(dest string, fetch func(*os.File) (int64, error)) error {
	out, err := os.Create(dest)
	if err != nil {
		return err
	}
	n, err := fetch(out)
	if closeErr := out.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return err
	}
	fmt.Printf("wrote %d bytes to %s\n", n, dest)
	return nil
}
