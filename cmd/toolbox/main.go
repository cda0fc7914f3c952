package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"

	"cloud.google.com/go/firestore"
	"github.com/gin-gonic/gin"
	"github.com/gosimple/slug"
	"google.golang.org/api/iterator"

	"code-bounty/internal/config"
	"code-bounty/internal/log"
	"code-bounty/internal/models"
)

const (
	minArgsRequired   = 2
	filePermReadWrite = 0600
	previewLimit      = 5
)

var ErrOperationCancelled = errors.New("operation cancelled by user")

type command struct {
	name  string
	help  string
	flags []string
	run   func(args []string)
}

var commands = []command{
	{
		name:  "wipe-firestore",
		help:  "Delete every document in the bounty collections",
		flags: []string{"--force              Skip confirmation prompt (DANGEROUS!)", "--collection NAME    Only wipe one collection"},
		run:   handleWipeFirestore,
	},
	{
		name:  "dump-firestore",
		help:  "Export the bounty collections as JSON (password hashes omitted)",
		flags: []string{"--output FILE        Write output to file instead of stdout", "--pretty             Pretty-print JSON output", "--collection NAME    Only dump one collection"},
		run:   handleDumpFirestore,
	},
	{
		name:  "backfill-slugs",
		help:  "Set the slug field on bounties created without one",
		flags: []string{"--dry-run            Show what would change without writing"},
		run:   handleBackfillSlugs,
	},
}

func main() {
	if len(os.Args) < minArgsRequired {
		printUsage()
		os.Exit(1)
	}

	name := os.Args[1]
	if name == "help" || name == "-h" || name == "--help" {
		printUsage()
		return
	}
	for _, cmd := range commands {
		if cmd.name == name {
			cmd.run(os.Args[2:])
			return
		}
	}
	fmt.Printf("Unknown command: %s\n\n", name)
	printUsage()
	os.Exit(1)
}

func printUsage() {
	fmt.Println("Toolbox - maintenance commands for code-bounty")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  toolbox <command> [flags]")
	fmt.Println()
	fmt.Println("Commands:")
	for _, cmd := range commands {
		fmt.Printf("  %-18s %s\n", cmd.name, cmd.help)
	}
	fmt.Printf("  %-18s %s\n", "help", "Show this help message")
	for _, cmd := range commands {
		fmt.Printf("\nFlags for %s:\n", cmd.name)
		for _, f := range cmd.flags {
			fmt.Println("  " + f)
		}
	}
}

// selectCollections returns every known collection, or just only when set.
func selectCollections(only string) ([]string, error) {
	if only == "" {
		return models.AllCollections, nil
	}
	for _, c := range models.AllCollections {
		if c == only {
			return []string{c}, nil
		}
	}
	return nil, fmt.Errorf("unknown collection %q (known: %s)", only, strings.Join(models.AllCollections, ", "))
}

// connect loads configuration, installs the logger and opens Firestore.
// The caller owns the returned client.
func connect(ctx context.Context) (*config.Config, *firestore.Client) {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	log.Setup(os.Stdout, cfg.LogLevel, cfg.GinMode == gin.ReleaseMode)

	log.Info(ctx, "Connecting to Firestore", "project_id", cfg.FirestoreProjectID, "database_id", cfg.FirestoreDatabaseID)
	client, err := firestore.NewClientWithDatabase(ctx, cfg.FirestoreProjectID, cfg.FirestoreDatabaseID)
	if err != nil {
		log.Error(ctx, "Failed to create Firestore client", "error", err)
		os.Exit(1)
	}
	return cfg, client
}

func closeClient(client *firestore.Client) {
	if err := client.Close(); err != nil {
		log.Error(context.Background(), "Error closing Firestore client", "error", err)
	}
}

func handleWipeFirestore(args []string) {
	fs := flag.NewFlagSet("wipe-firestore", flag.ExitOnError)
	force := fs.Bool("force", false, "Skip confirmation prompt (DANGEROUS!)")
	only := fs.String("collection", "", "Only wipe one collection")
	_ = fs.Parse(args)

	collections, err := selectCollections(*only)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	ctx := context.Background()
	cfg, client := connect(ctx)
	defer closeClient(client)

	if !*force {
		if err := confirmWipe(cfg, collections); err != nil {
			if errors.Is(err, ErrOperationCancelled) {
				log.Info(ctx, "Operation cancelled by user")
				return
			}
			log.Error(ctx, "Failed to get confirmation", "error", err)
			os.Exit(1)
		}
	}

	for _, collection := range collections {
		deleted, err := wipeCollection(ctx, client, collection)
		if err != nil {
			log.Error(ctx, "Failed to wipe collection", "collection", collection, "deleted", deleted, "error", err)
			os.Exit(1)
		}
		log.Info(ctx, "Collection wiped", "collection", collection, "documents_deleted", deleted)
	}
}

func confirmWipe(cfg *config.Config, collections []string) error {
	fmt.Printf("\n⚠️  WARNING: This will DELETE ALL DATA in %s\n", strings.Join(collections, ", "))
	fmt.Printf("   Project: %s\n", cfg.FirestoreProjectID)
	fmt.Printf("   Database: %s\n", cfg.FirestoreDatabaseID)
	fmt.Print("\nType 'DELETE' to confirm: ")

	response, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil {
		return fmt.Errorf("failed to read user input: %w", err)
	}
	if strings.TrimSpace(response) != "DELETE" {
		return ErrOperationCancelled
	}
	return nil
}

// wipeCollection deletes through DocumentRefs so documents that only exist
// as parents of subcollections are removed too.
func wipeCollection(ctx context.Context, client *firestore.Client, name string) (int, error) {
	refs := client.Collection(name).DocumentRefs(ctx)
	writer := client.BulkWriter(ctx)
	defer writer.End()

	var jobs []*firestore.BulkWriterJob
	for {
		ref, err := refs.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return 0, fmt.Errorf("failed to list %s: %w", name, err)
		}
		job, err := writer.Delete(ref)
		if err != nil {
			return 0, fmt.Errorf("failed to queue delete of %s/%s: %w", name, ref.ID, err)
		}
		jobs = append(jobs, job)
	}
	writer.Flush()

	deleted := 0
	for _, job := range jobs {
		if _, err := job.Results(); err != nil {
			return deleted, err
		}
		deleted++
	}
	return deleted, nil
}

func handleDumpFirestore(args []string) {
	fs := flag.NewFlagSet("dump-firestore", flag.ExitOnError)
	outputFile := fs.String("output", "", "Write output to file instead of stdout")
	pretty := fs.Bool("pretty", false, "Pretty-print JSON output")
	only := fs.String("collection", "", "Only dump one collection")
	_ = fs.Parse(args)

	collections, err := selectCollections(*only)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	ctx := context.Background()
	_, client := connect(ctx)
	defer closeClient(client)

	dump := make(map[string][]map[string]any, len(collections))
	for _, collection := range collections {
		docs, err := dumpCollection(ctx, client, collection)
		if err != nil {
			log.Error(ctx, "Failed to dump collection", "collection", collection, "error", err)
			os.Exit(1)
		}
		dump[collection] = docs
		log.Info(ctx, "Collection dumped", "collection", collection, "documents", len(docs))
	}

	var out []byte
	if *pretty {
		out, err = json.MarshalIndent(dump, "", "  ")
	} else {
		out, err = json.Marshal(dump)
	}
	if err != nil {
		log.Error(ctx, "Failed to marshal JSON", "error", err)
		os.Exit(1)
	}

	if *outputFile == "" {
		fmt.Println(string(out))
		return
	}
	if err := os.WriteFile(*outputFile, out, filePermReadWrite); err != nil {
		log.Error(ctx, "Failed to write output file", "file", *outputFile, "error", err)
		os.Exit(1)
	}
	log.Info(ctx, "Exported Firestore data", "file", *outputFile, "size_bytes", len(out))
}

func dumpCollection(ctx context.Context, client *firestore.Client, collectionName string) ([]map[string]any, error) {
	documents := []map[string]any{}

	iter := client.Collection(collectionName).OrderBy(firestore.DocumentID, firestore.Asc).Documents(ctx)
	defer iter.Stop()
	for {
		doc, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to iterate documents: %w", err)
		}

		data := doc.Data()
		docData := make(map[string]any, len(data)+1)
		docData["_id"] = doc.Ref.ID
		for k, v := range data {
			// Password hashes never leave the database.
			if collectionName == models.CollectionIdentities && k == "passwordHash" {
				continue
			}
			docData[k] = v
		}
		documents = append(documents, docData)
	}

	return documents, nil
}

type slugUpdate struct {
	id    string
	title string
	slug  string
}

func handleBackfillSlugs(args []string) {
	fs := flag.NewFlagSet("backfill-slugs", flag.ExitOnError)
	dryRun := fs.Bool("dry-run", false, "Show what would change without writing")
	_ = fs.Parse(args)

	ctx := context.Background()
	_, client := connect(ctx)
	defer closeClient(client)

	updates, err := findMissingSlugs(ctx, client)
	if err != nil {
		log.Error(ctx, "Failed to scan bounties", "error", err)
		os.Exit(1)
	}

	if len(updates) == 0 {
		fmt.Println("✅ Every bounty already has a slug.")
		return
	}

	fmt.Printf("Found %d bounties without a slug:\n", len(updates))
	for i, u := range updates {
		if i == previewLimit {
			fmt.Printf("  ... and %d more bounties\n", len(updates)-previewLimit)
			break
		}
		fmt.Printf("  - %s: %q → %s\n", u.id, u.title, u.slug)
	}

	if *dryRun {
		fmt.Println("\n🔍 DRY RUN MODE: No changes will be made.")
		return
	}

	bulkWriter := client.BulkWriter(ctx)
	jobs := make([]*firestore.BulkWriterJob, 0, len(updates))
	for _, u := range updates {
		ref := client.Collection(models.CollectionBounties).Doc(u.id)
		job, err := bulkWriter.Update(ref, []firestore.Update{
			{Path: "slug", Value: u.slug},
			{Path: "updatedAt", Value: firestore.ServerTimestamp},
		})
		if err != nil {
			bulkWriter.End()
			log.Error(ctx, "Failed to queue slug update", "bounty_id", u.id, "error", err)
			os.Exit(1)
		}
		jobs = append(jobs, job)
	}
	bulkWriter.End()

	failed := 0
	for i, job := range jobs {
		if _, err := job.Results(); err != nil {
			log.Error(ctx, "Failed to update bounty slug", "bounty_id", updates[i].id, "error", err)
			failed++
		}
	}

	fmt.Printf("\n✅ Backfill completed: %d updated", len(updates)-failed)
	if failed > 0 {
		fmt.Printf(", %d failed", failed)
	}
	fmt.Println()
}

func findMissingSlugs(ctx context.Context, client *firestore.Client) ([]slugUpdate, error) {
	var updates []slugUpdate

	iter := client.Collection(models.CollectionBounties).Documents(ctx)
	defer iter.Stop()
	for {
		doc, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to iterate bounties: %w", err)
		}

		var bounty models.Bounty
		if err := doc.DataTo(&bounty); err != nil {
			log.Warn(ctx, "Skipping undecodable bounty", "bounty_id", doc.Ref.ID, "error", err)
			continue
		}
		if bounty.Slug != "" || bounty.Title == "" {
			continue
		}
		updates = append(updates, slugUpdate{id: doc.Ref.ID, title: bounty.Title, slug: slug.Make(bounty.Title)})
	}

	return updates, nil
}
