// Package docker generates container configuration for a service from a
// short description: a docker-compose.yaml plus a matching Dockerfile.
package docker

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"text/template"

	"gopkg.in/yaml.v3"

	"github.com/oddrun/sidekick/internal/errors"
)

// Service describes what to generate.
type Service struct {
	Name    string
	Runtime string
	Ports   []int
	Volumes []string
	Env     map[string]string
}

var nameRe = regexp.MustCompile(`^[a-z][a-z0-9_-]*$`)

// baseImages maps a runtime to its Dockerfile base image.
var baseImages = map[string]string{
	"go":     "golang:1.24-alpine",
	"node":   "node:22-alpine",
	"python": "python:3.12-slim",
}

// Runtimes lists the supported runtime names.
func Runtimes() []string {
	return []string{"go", "node", "python"}
}

func (s Service) validate() error {
	if !nameRe.MatchString(s.Name) {
		return errors.SkillError("docker", fmt.Sprintf("invalid service name %q", s.Name), nil)
	}
	if _, ok := baseImages[s.Runtime]; !ok {
		return errors.SkillError("docker",
			fmt.Sprintf("unsupported runtime %q (supported: %s)", s.Runtime, strings.Join(Runtimes(), ", ")), nil)
	}
	for _, p := range s.Ports {
		if p <= 0 || p > 65535 {
			return errors.SkillError("docker", fmt.Sprintf("port %d out of range", p), nil)
		}
	}
	return nil
}

// compose document shape, kept minimal on purpose.
type composeFile struct {
	Services map[string]composeService `yaml:"services"`
}

type composeService struct {
	Build       string            `yaml:"build"`
	Ports       []string          `yaml:"ports,omitempty"`
	Volumes     []string          `yaml:"volumes,omitempty"`
	Environment map[string]string `yaml:"environment,omitempty"`
	Restart     string            `yaml:"restart"`
}

var dockerfileTemplate = template.Must(template.New("dockerfile").Parse(`FROM {{ .BaseImage }}

WORKDIR /app
COPY . .
{{ if eq .Runtime "go" }}RUN go build -o /usr/local/bin/{{ .Name }} .

CMD ["{{ .Name }}"]
{{ else if eq .Runtime "node" }}RUN npm ci --omit=dev

CMD ["node", "."]
{{ else }}RUN pip install --no-cache-dir -r requirements.txt

CMD ["python", "main.py"]
{{ end }}`))

// Generate writes docker-compose.yaml and Dockerfile into dir. Existing
// files are refused unless force is set.
func Generate(dir string, svc Service, force bool) error {
	if err := svc.validate(); err != nil {
		return err
	}

	composePath := filepath.Join(dir, "docker-compose.yaml")
	dockerfilePath := filepath.Join(dir, "Dockerfile")
	if !force {
		for _, p := range []string{composePath, dockerfilePath} {
			if _, err := os.Stat(p); err == nil {
				return errors.SkillError("docker",
					fmt.Sprintf("%s already exists (use --force to overwrite)", filepath.Base(p)), nil)
			}
		}
	}

	compose, err := renderCompose(svc)
	if err != nil {
		return err
	}
	dockerfile, err := renderDockerfile(svc)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errors.SkillError("docker", "create output directory", err)
	}
	if err := os.WriteFile(composePath, compose, 0o644); err != nil {
		return errors.SkillError("docker", "write docker-compose.yaml", err)
	}
	if err := os.WriteFile(dockerfilePath, dockerfile, 0o644); err != nil {
		return errors.SkillError("docker", "write Dockerfile", err)
	}
	return nil
}

func renderCompose(svc Service) ([]byte, error) {
	ports := make([]string, 0, len(svc.Ports))
	for _, p := range svc.Ports {
		ports = append(ports, fmt.Sprintf("%d:%d", p, p))
	}

	doc := composeFile{
		Services: map[string]composeService{
			svc.Name: {
				Build:       ".",
				Ports:       ports,
				Volumes:     svc.Volumes,
				Environment: svc.Env,
				Restart:     "unless-stopped",
			},
		},
	}
	data, err := yaml.Marshal(doc)
	if err != nil {
		return nil, errors.SkillError("docker", "marshal compose file", err)
	}
	return data, nil
}

func renderDockerfile(svc Service) ([]byte, error) {
	var b strings.Builder
	err := dockerfileTemplate.Execute(&b, struct {
		Name      string
		Runtime   string
		BaseImage string
	}{svc.Name, svc.Runtime, baseImages[svc.Runtime]})
	if err != nil {
		return nil, errors.SkillError("docker", "render Dockerfile", err)
	}
	return []byte(b.String()), nil
}
