package coretools

import (
	"context"
	"embed"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"text/template"

	"github.com/jorgeantonio/flutter-architect/pkg/toolexecutor"
	"github.com/rs/zerolog/log"
)

// Navigation types.
const (
	NavBottomNav = "bottom_nav"
	NavDrawer    = "drawer"
	NavSimple    = "simple"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

var dartTemplates = template.Must(
	template.New("dart").
		Funcs(template.FuncMap{"camel": toCamelCase, "pascal": toPascalCase}).
		ParseFS(templateFS, "templates/*.tmpl"),
)

var (
	coreFolders = []string{
		"core/app",
		"core/assets",
		"core/config",
		"core/constants",
		"core/providers",
		"core/routing",
		"core/services",
		"core/theme",
	}
	sharedFolders = []string{
		"shared/widgets",
		"shared/utils",
		"shared/extensions",
		"shared/presentation/screens",
	}
	featureFolders = []string{
		"data/datasources",
		"data/mappers",
		"data/models",
		"data/repositories",
		"domain/entities",
		"domain/repositories",
		"presentation/providers",
		"presentation/screens",
		"presentation/widgets",
	}
)

type scaffoldArgs struct {
	ProjectName       string   `json:"projectName"`
	Features          []string `json:"features"`
	NavigationType    string   `json:"navigationType"`
	BottomNavFeatures []string `json:"bottomNavFeatures,omitempty"`
}

type routerData struct {
	AppName  string
	Features []string
	Tabs     []string
	Others   []string
	Initial  string
}

type renderJob struct {
	path string
	tmpl string
	data interface{}
}

type featureData struct {
	Name string
}

func scaffoldTool(opts Options) toolexecutor.ToolDefinition {
	return toolexecutor.ToolDefinition{
		Name:        "scaffold_clean_arch",
		Description: "Generates Clean Architecture structure with core, shared, and feature files.",
		Parameters: []toolexecutor.ToolParameter{
			{Name: "projectName", Type: "string", Description: "The name of the project folder", Required: true},
			{
				Name: "features", Type: "array", Description: "List of feature names (e.g. ['auth', 'products'])", Required: true,
				Items: &toolexecutor.ToolParameter{Type: "string"},
			},
			{
				Name: "navigationType", Type: "string", Description: "Type of main navigation", Required: true,
				Enum: []string{NavBottomNav, NavDrawer, NavSimple},
			},
			{
				Name: "bottomNavFeatures", Type: "array", Description: "If bottom_nav, which features are tabs?",
				Items: &toolexecutor.ToolParameter{Type: "string"},
			},
		},
		Handler: toolexecutor.Typed(func(ctx context.Context, args scaffoldArgs) toolexecutor.ToolResult {
			root, err := resolveWorkspaceRoot(toolexecutor.ExecContextFromContext(ctx), opts)
			if err != nil {
				return toolexecutor.Failure(err.Error())
			}
			projectDir, err := resolveProjectDir(root, args.ProjectName)
			if err != nil {
				return toolexecutor.Failure(err.Error())
			}

			log.Info().
				Str("project", args.ProjectName).
				Int("features", len(args.Features)).
				Str("navigation", args.NavigationType).
				Msg("Scaffolding clean architecture")

			if err := scaffold(projectDir, args); err != nil {
				return toolexecutor.Failure(err.Error())
			}
			return toolexecutor.SuccessMessage(fmt.Sprintf("Architecture V2 (Mode: %s) generated for %s.", args.NavigationType, args.ProjectName))
		}),
	}
}

// scaffold writes the lib/ tree of a Flutter project.
func scaffold(projectDir string, args scaffoldArgs) error {
	libDir := filepath.Join(projectDir, "lib")
	srcDir := filepath.Join(libDir, "src")

	features, err := cleanFeatureNames(args.Features)
	if err != nil {
		return err
	}
	if args.NavigationType == NavBottomNav {
		tabs, err := cleanFeatureNames(args.BottomNavFeatures)
		if err != nil {
			return err
		}
		// Every tab needs a screen.
		for _, tab := range tabs {
			if !contains(features, tab) {
				features = append(features, tab)
			}
		}
	}
	// A shell route needs at least one branch.
	if len(features) == 0 && args.NavigationType == NavBottomNav {
		features = []string{"home"}
	}

	for _, folder := range append(append([]string{}, coreFolders...), sharedFolders...) {
		if err := os.MkdirAll(filepath.Join(srcDir, folder), 0755); err != nil {
			return err
		}
	}

	data := buildRouterData(args, features)

	routerTemplate := "app_router.dart.tmpl"
	if args.NavigationType == NavBottomNav {
		routerTemplate = "app_router_shell.dart.tmpl"
	}

	files := []renderJob{
		{filepath.Join(srcDir, "core/routing/routes.dart"), "routes.dart.tmpl", data},
		{filepath.Join(srcDir, "core/routing/app_router.dart"), routerTemplate, data},
		{filepath.Join(srcDir, "core/constants/constants.dart"), "constants.dart.tmpl", data},
		{filepath.Join(srcDir, "core/theme/app_theme.dart"), "app_theme.dart.tmpl", data},
		{filepath.Join(srcDir, "core/app/app.dart"), "app.dart.tmpl", data},
	}

	for _, feature := range features {
		featDir := filepath.Join(srcDir, "features", feature)
		for _, folder := range featureFolders {
			if err := os.MkdirAll(filepath.Join(featDir, folder), 0755); err != nil {
				return err
			}
		}

		fd := featureData{Name: feature}
		files = append(files,
			renderJob{filepath.Join(featDir, "domain/entities", feature+".dart"), "entity.dart.tmpl", fd},
			renderJob{filepath.Join(featDir, "domain/repositories", feature+"_repository.dart"), "repository.dart.tmpl", fd},
			renderJob{filepath.Join(featDir, "presentation/screens", feature+"_screen.dart"), "screen.dart.tmpl", fd},
			renderJob{filepath.Join(featDir, "presentation/providers", feature+"_provider.dart"), "provider.dart.tmpl", fd},
		)
	}

	files = append(files, renderJob{filepath.Join(libDir, "main.dart"), "main.dart.tmpl", data})

	for _, f := range files {
		if err := renderFile(f.path, f.tmpl, f.data); err != nil {
			return err
		}
	}
	return nil
}

func buildRouterData(args scaffoldArgs, features []string) routerData {
	data := routerData{
		AppName:  toTitle(args.ProjectName),
		Features: features,
	}
	if len(features) > 0 {
		data.Initial = features[0]
	}

	if args.NavigationType != NavBottomNav {
		return data
	}

	var tabs []string
	for _, t := range args.BottomNavFeatures {
		if name := cleanFeatureName(t); name != "" && contains(features, name) {
			tabs = append(tabs, name)
		}
	}
	if len(tabs) == 0 {
		tabs = features
		if len(tabs) > 3 {
			tabs = tabs[:3]
		}
	}
	if len(tabs) == 0 {
		tabs = []string{"home"}
	}

	isTab := make(map[string]bool, len(tabs))
	for _, t := range tabs {
		isTab[t] = true
	}
	for _, f := range features {
		if !isTab[f] {
			data.Others = append(data.Others, f)
		}
	}

	data.Tabs = tabs
	data.Initial = tabs[0]
	return data
}

func renderFile(path, tmpl string, data interface{}) error {
	var sb strings.Builder
	if err := dartTemplates.ExecuteTemplate(&sb, tmpl, data); err != nil {
		return fmt.Errorf("failed to render %s: %w", filepath.Base(path), err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	return os.WriteFile(path, []byte(sb.String()), 0644)
}

var featureNamePattern = regexp.MustCompile(`^[a-z][a-z0-9_]*$`)

func cleanFeatureName(name string) string {
	name = strings.ReplaceAll(strings.ToLower(name), "-", "_")
	return strings.Join(strings.Fields(name), "_")
}

// cleanFeatureNames normalizes names and drops blanks and duplicates. Names
// become folder names and Dart identifiers, so anything else is rejected.
func cleanFeatureNames(names []string) ([]string, error) {
	out := make([]string, 0, len(names))
	for _, raw := range names {
		name := cleanFeatureName(raw)
		if name == "" || contains(out, name) {
			continue
		}
		if !featureNamePattern.MatchString(name) {
			return nil, fmt.Errorf("invalid feature name %q: use letters, digits and underscores, starting with a letter", raw)
		}
		out = append(out, name)
	}
	return out, nil
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func toPascalCase(s string) string {
	parts := strings.Split(s, "_")
	for i, p := range parts {
		if p != "" {
			parts[i] = strings.ToUpper(p[:1]) + p[1:]
		}
	}
	return strings.Join(parts, "")
}

func toCamelCase(s string) string {
	pascal := toPascalCase(s)
	if pascal == "" {
		return pascal
	}
	return strings.ToLower(pascal[:1]) + pascal[1:]
}

func toTitle(s string) string {
	parts := strings.FieldsFunc(s, func(r rune) bool { return r == '_' || r == '-' || r == ' ' })
	for i, p := range parts {
		parts[i] = strings.ToUpper(p[:1]) + p[1:]
	}
	return strings.Join(parts, " ")
}
