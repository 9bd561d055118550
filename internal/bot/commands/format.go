package commands

import (
	"errors"
	"fmt"
	"html"
	"strconv"
	"strings"

	"reposcanner/internal/browse"
	"reposcanner/internal/models"
	"reposcanner/internal/utils"
)

type describeArgs struct {
	Paths     []string
	All       bool
	MaxLength int
	Message   string
}

// parseDescribeArgs reads "/describe [paths ...] [--all] [--max=N] [-m message]".
// Everything after -m is the commit message.
func parseDescribeArgs(args []string, defaultMax int) (describeArgs, error) {
	da := describeArgs{MaxLength: defaultMax}
	for i := 0; i < len(args); i++ {
		arg := args[i]
		switch {
		case arg == "--all":
			da.All = true
		case strings.HasPrefix(arg, "--max="):
			n, err := strconv.Atoi(strings.TrimPrefix(arg, "--max="))
			if err != nil || n < 1 {
				return da, fmt.Errorf("--max must be a positive number, got %q", strings.TrimPrefix(arg, "--max="))
			}
			da.MaxLength = n
		case arg == "-m":
			da.Message = strings.Join(args[i+1:], " ")
			if da.Message == "" {
				return da, errors.New("-m needs a commit message")
			}
			return da, nil
		case strings.HasPrefix(arg, "-"):
			return da, fmt.Errorf("unknown flag %s", arg)
		default:
			da.Paths = append(da.Paths, strings.TrimPrefix(arg, "/"))
		}
	}
	return da, nil
}

// parseFilters turns "/files" arguments into filters. A token starting with a
// dot is the extension, anything else a directory.
func parseFilters(args []string) browse.Filters {
	var f browse.Filters
	for _, arg := range args {
		if strings.HasPrefix(arg, ".") && len(arg) > 1 {
			f.Extension = arg
			continue
		}
		dir := strings.Trim(arg, "/")
		if dir == "" {
			dir = browse.RootGroup
		}
		f = f.ToggleDirectory(dir)
	}
	return f
}

func formatRepoSummary(repo models.Repository, cached bool) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("📦 <b>%s</b>\n", html.EscapeString(repo.URL)))
	sb.WriteString(fmt.Sprintf("Branch: %s\n", utils.Code(repo.Branch)))
	sb.WriteString(fmt.Sprintf("Files: %d, Branches: %d\n", len(repo.Files), len(repo.Branches)))
	if cached {
		sb.WriteString("<i>Loaded from cache. Use /sync to fetch it again.</i>\n")
	}
	sb.WriteString("\nNext: /files, /branches, /describe")
	return sb.String()
}

func formatFiles(repo models.Repository, files []models.RepoFileEntry) string {
	if len(files) == 0 {
		return "No files match."
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("📂 <b>%s</b> (%d files)\n", html.EscapeString(repo.URL), len(files)))
	for _, g := range browse.GroupByDirectory(files) {
		sb.WriteString("\n" + utils.Bold(g.Directory) + "\n")
		for _, f := range g.Files {
			icon := "•"
			switch {
			case browse.IsMarkdown(f.Name):
				icon = "📝"
			case browse.IsImage(f.Name):
				icon = "🖼"
			}
			sb.WriteString(fmt.Sprintf("%s %s\n", icon, utils.Code(f.Path)))
		}
	}
	return sb.String()
}

func formatWhoami(auth models.AuthState, user *models.UserProfile, repo models.Repository) string {
	var sb strings.Builder
	switch {
	case user != nil:
		sb.WriteString(fmt.Sprintf("👤 GitHub: <b>%s</b>", html.EscapeString(user.Login)))
		if user.Name != "" {
			sb.WriteString(fmt.Sprintf(" (%s)", html.EscapeString(user.Name)))
		}
		sb.WriteString("\n")
	case auth.Token != "":
		sb.WriteString("👤 GitHub: token set, but GitHub did not accept it\n")
	default:
		sb.WriteString("👤 GitHub: not connected\n")
	}

	if auth.RigobotToken != "" {
		sb.WriteString("🤖 Rigobot: token set\n")
	} else {
		sb.WriteString("🤖 Rigobot: not set\n")
	}

	if !repo.IsZero() {
		sb.WriteString(fmt.Sprintf("📦 Repository: %s @ %s", html.EscapeString(repo.URL), utils.Code(repo.Branch)))
	} else {
		sb.WriteString("📦 Repository: none")
	}
	return sb.String()
}

func formatJob(repo models.Repository, paths []string, da describeArgs) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("📝 Generate descriptions for <b>%d</b> files in %s @ %s\n", len(paths), html.EscapeString(repo.URL), utils.Code(repo.Branch)))
	sb.WriteString(fmt.Sprintf("Max length: %d", da.MaxLength))
	if da.All {
		sb.WriteString(", regenerate all")
	}
	sb.WriteString("\n")
	if da.Message != "" {
		sb.WriteString("Commit message: " + utils.Code(da.Message) + "\n")
	}

	const shown = 20
	for i, p := range paths {
		if i == shown {
			sb.WriteString(fmt.Sprintf("… and %d more\n", len(paths)-shown))
			break
		}
		sb.WriteString("• " + utils.Code(p) + "\n")
	}
	return sb.String()
}
