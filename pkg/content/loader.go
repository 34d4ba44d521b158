package content

import (
	"bufio"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/lektor-go/lektor/pkg/errors"
	"github.com/lektor-go/lektor/pkg/fileinfo"
)

// ProcessorFor maps an asset file extension (including the leading dot,
// lowercased) to the processor key a registered program.Processor
// answers to, e.g. {".less": "less"}. Extensions with no entry are
// byte-copied by the Asset file program.
type ProcessorFor map[string]string

// Load walks contentRoot for records/attachments and assetRoot for
// static assets, building the in-memory Pad the builder walks.
// defaultPerPage is the project-wide pagination.per_page fallback
// (config.ProjectConfig.PaginationPerPage) applied to any record that
// enables pagination without naming its own per_page field.
func Load(contentRoot, assetRoot string, processors ProcessorFor, defaultPerPage int) (*Pad, error) {
	root, err := loadRecord(contentRoot, "", "/", defaultPerPage)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeSourceIO, "load content tree", err)
	}

	assets, err := loadAssetDirectory(assetRoot, "", "/", processors)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeSourceIO, "load asset tree", err)
	}

	return &Pad{root: root, assetRoot: assets}, nil
}

func loadRecord(dir, sourcePath, urlPath string, defaultPerPage int) (*Record, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return &Record{sourcePath: sourcePath, urlPath: urlPath, visible: true, templateName: "page.html", fields: map[string]string{}}, nil
		}
		return nil, err
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	rec := &Record{sourcePath: sourcePath, urlPath: urlPath, visible: true, templateName: "page.html", fields: map[string]string{}}

	for _, e := range entries {
		name := e.Name()
		if fileinfo.SourceIgnore(name) {
			continue
		}

		if !e.IsDir() && name == "contents.lr" {
			fields, body, err := parseContentsFile(filepath.Join(dir, name))
			if err != nil {
				return nil, err
			}
			rec.contentsFile = filepath.Join(dir, name)
			rec.fields = fields
			rec.body = body
			if t := fields["template"]; t != "" {
				rec.templateName = t
			}
			if fields["hidden"] == "true" {
				rec.visible = false
			}
			continue
		}

		if e.IsDir() {
			childSourcePath := joinSourcePath(sourcePath, name)
			childURLPath := path.Join(urlPath, name) + "/"
			child, err := loadRecord(filepath.Join(dir, name), childSourcePath, childURLPath, defaultPerPage)
			if err != nil {
				return nil, err
			}
			rec.children = append(rec.children, child)
			continue
		}

		// Any other file in a record's directory is an attachment.
		rec.attachments = append(rec.attachments, &Attachment{
			sourcePath: joinSourcePath(sourcePath, name),
			filename:   filepath.Join(dir, name),
			urlPath:    path.Join(urlPath, name),
			visible:    true,
		})
	}

	applyPagination(rec, defaultPerPage)
	return rec, nil
}

// applyPagination reads a record's pagination_enabled/pagination_per_page/
// pagination_url_suffix fields (the flat-file equivalent of the
// original's pagination.enabled/per_page/url_suffix ini keys) and, if
// enabled, points it at its own children as the listing to page over.
func applyPagination(rec *Record, defaultPerPage int) {
	if rec.fields["pagination_enabled"] != "true" {
		return
	}
	rec.paginationEnabled = true
	rec.paginationPerPage = defaultPerPage
	if v := rec.fields["pagination_per_page"]; v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			rec.paginationPerPage = n
		}
	}
	if v := rec.fields["pagination_url_suffix"]; v != "" {
		rec.paginationURLSuffix = v
	}
	rec.listingItems = rec.children
}

func loadAssetDirectory(dir, sourcePath, urlPath string, processors ProcessorFor) (*AssetDirectory, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return &AssetDirectory{sourcePath: sourcePath, urlPath: urlPath}, nil
		}
		return nil, err
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	d := &AssetDirectory{sourcePath: sourcePath, urlPath: urlPath}
	for _, e := range entries {
		name := e.Name()
		if fileinfo.SourceIgnore(name) {
			continue
		}
		childSourcePath := joinSourcePath(sourcePath, name)
		childURLPath := path.Join(urlPath, name)

		if e.IsDir() {
			child, err := loadAssetDirectory(filepath.Join(dir, name), childSourcePath, childURLPath+"/", processors)
			if err != nil {
				return nil, err
			}
			d.children = append(d.children, child)
			continue
		}

		ext := strings.ToLower(filepath.Ext(name))
		d.children = append(d.children, &AssetFile{
			sourcePath: childSourcePath,
			filename:   filepath.Join(dir, name),
			urlPath:    childURLPath,
			processor:  processors[ext],
		})
	}
	return d, nil
}

func joinSourcePath(parent, name string) string {
	if parent == "" {
		return name
	}
	return parent + "/" + name
}

// parseContentsFile parses the simple flat-file format: "key: value"
// lines, then an optional "---" divider followed by a free-form body.
func parseContentsFile(path string) (map[string]string, string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, "", err
	}
	defer f.Close()

	fields := map[string]string{}
	var body strings.Builder
	inBody := false

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Text()
		if !inBody && strings.TrimSpace(line) == "---" {
			inBody = true
			continue
		}
		if inBody {
			body.WriteString(line)
			body.WriteString("\n")
			continue
		}
		idx := strings.Index(line, ":")
		if idx < 0 {
			continue
		}
		key := strings.TrimSpace(line[:idx])
		value := strings.TrimSpace(line[idx+1:])
		if key != "" {
			fields[key] = value
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, "", err
	}
	return fields, body.String(), nil
}
