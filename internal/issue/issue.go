// SPDX-License-Identifier: MPL-2.0

package issue

import (
	"github.com/charmbracelet/glamour"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

type Id int

const (
	EnvfileNotFoundId Id = iota + 1
	EnvfileParseErrorId
	EnvironmentNotFoundId
	InheritanceCycleId
	UnknownCapabilityId
	ContainerEngineNotFoundId
	ImageBuildFailedId
	MissingHostEnvId
	RequirementNotMetId
	ConfigLoadFailedId
)

type MarkdownMsg string

type HttpLink string

type Renderer interface {
	Render(in string, stylePath string) (string, error)
}

type Issue struct {
	id       Id          // ID used to lookup the issue
	mdMsg    MarkdownMsg // Markdown text that will be rendered
	docLinks []HttpLink  // must never be empty, because we need to have docs about all issue types
	extLinks []HttpLink  // external links that might be useful for the user
}

func (i *Issue) Id() Id {
	return i.id
}

func (i *Issue) MarkdownMsg() MarkdownMsg {
	return i.mdMsg
}

func (i *Issue) DocLinks() []HttpLink {
	return slices.Clone(i.docLinks)
}

func (i *Issue) ExtLinks() []HttpLink {
	return slices.Clone(i.extLinks)
}

func (i *Issue) Render(stylePath string) (string, error) {
	extraMd := ""
	if len(i.docLinks) > 0 || len(i.extLinks) > 0 {
		extraMd += "\n\n"
		extraMd += "## See also: "
		for _, link := range i.docLinks {
			extraMd += "- [" + string(link) + "]"
		}
		for _, link := range i.extLinks {
			extraMd += "- [" + string(link) + "]"
		}
	}
	return render(string(i.mdMsg)+extraMd, stylePath)
}

var (
	render = glamour.Render

	envfileNotFoundIssue = &Issue{
		id: EnvfileNotFoundId,
		mdMsg: `
# No environments found!

We searched the environments directory but found no envfile documents.

## Search locations (in order of precedence):
1. The directory set by environments_dir in your config file
2. ~/.config/podbox/environments/

## Things you can try:
- Create an envfile in the environments directory:
~~~cue
environments: [
  {
    name: "fedora"
    image: "registry.fedoraproject.org/fedora:latest"
    capabilities: terminal: true
  },
]
~~~

- Or point podbox at an existing directory in ~/.config/podbox/config.cue:
~~~cue
environments_dir: "/path/to/environments"
~~~`,
	}

	envfileParseErrorIssue = &Issue{
		id: EnvfileParseErrorId,
		mdMsg: `
# Failed to parse envfile!

An envfile document contains syntax errors or invalid configuration.

## Common issues:
- Invalid CUE syntax (missing quotes, braces, etc.)
- Unknown field names
- Invalid values for known fields
- Missing required fields (every environment needs a name)

## Things you can try:
- Check the error message above for the specific line/column
- Validate your CUE syntax using the cue command-line tool
- Run with verbose mode for more details:
~~~
$ podbox --verbose list
~~~

## Example of a valid environment definition:
~~~cue
environments: [
  {
    name: "shell"
    image: "registry.fedoraproject.org/fedora:latest"
    command: ["/bin/bash"]
    capabilities: {
      terminal: true
      network:  true
    }
  },
]
~~~`,
	}

	environmentNotFoundIssue = &Issue{
		id: EnvironmentNotFoundId,
		mdMsg: `
# Environment not found!

The environment you specified was not found in any of the loaded envfiles.

## Things you can try:
- List all available environments:
~~~
$ podbox list
~~~

- Check for typos in the environment name
- Verify the envfile defining the environment lives in the environments directory`,
	}

	inheritanceCycleIssue = &Issue{
		id: InheritanceCycleId,
		mdMsg: `
# Inheritance cycle detected!

The parent chain of an environment loops back onto itself, so its
definition can never be fully resolved.

## Example of a cycle:
~~~cue
environments: [
  {
    name:   "a"
    parent: "b"
  },
  {
    name:   "b"
    parent: "a"  // Cycle: a -> b -> a
  },
]
~~~

## Things you can try:
- Review the parent fields in your envfiles
- Remove the circular reference
- Factor shared settings into a single base environment instead`,
	}

	unknownCapabilityIssue = &Issue{
		id: UnknownCapabilityId,
		mdMsg: `
# Unknown capability!

An environment names a capability that podbox does not know about.
The capability set is closed; new names are not accepted.

## Things you can try:
- Check for typos in the capabilities map
- Inspect an environment to see which capabilities resolved:
~~~
$ podbox show <environment>
~~~

- Legacy camelCase names (e.g. mountCwd) are accepted and normalized
  to their hyphenated form (mount-cwd)`,
	}

	containerEngineNotFoundIssue = &Issue{
		id: ContainerEngineNotFoundId,
		mdMsg: `
# Container engine not found!

No container engine is available to run the environment.

## Supported container engines:
- **Podman** (recommended for rootless containers)
- **Docker**

## Things you can try:
- Install Podman:
  - Linux: ` + "`sudo apt install podman`" + ` or ` + "`sudo dnf install podman`" + `
  - macOS: ` + "`brew install podman`" + `

- Install Docker:
  - https://docs.docker.com/get-docker/

- Configure your preferred engine in ~/.config/podbox/config.cue:
~~~cue
engine: "podman"  // or "docker"
~~~`,
	}

	imageBuildFailedIssue = &Issue{
		id: ImageBuildFailedId,
		mdMsg: `
# Image build failed!

The container image for a managed environment could not be built.

## Common causes:
- A package in the packages list does not exist in the base image's
  package repositories
- An image-customizations command exited non-zero
- No network access while pulling the base image

## Things you can try:
- Re-run with verbose mode to see the full build output:
~~~
$ podbox --verbose run <environment>
~~~

- Test the failing install command manually inside the base image
- Check the base image name and tag in the envfile`,
	}

	missingHostEnvIssue = &Issue{
		id: MissingHostEnvId,
		mdMsg: `
# Missing host environment variable!

A capability needs a variable from your session that is not set.

## Variables capabilities rely on:
- **x11**: DISPLAY
- **pulseaudio**: XDG_RUNTIME_DIR
- **ssh**: SSH_AUTH_SOCK

## Things you can try:
- Run podbox from a graphical session for x11/pulseaudio
- Start an ssh-agent before using the ssh capability:
~~~
$ eval "$(ssh-agent)"
~~~

- Or drop the capability from the environment if it is not needed`,
	}

	requirementNotMetIssue = &Issue{
		id: RequirementNotMetId,
		mdMsg: `
# Required environment missing!

An environment lists another environment in its requires field, but no
environment with that name exists.

## Things you can try:
- List all available environments:
~~~
$ podbox list
~~~

- Check for typos in the requires list
- Define the missing environment in an envfile`,
	}

	configLoadFailedIssue = &Issue{
		id: ConfigLoadFailedId,
		mdMsg: `
# Failed to load configuration!

Could not load the podbox configuration file.

## Configuration file location:
- $XDG_CONFIG_HOME/podbox/config.cue (usually ~/.config/podbox/config.cue)

## Things you can try:
- Check the configuration syntax
- Remove the config file to use defaults:
~~~
$ rm ~/.config/podbox/config.cue
~~~

## Example configuration:
~~~cue
engine: "podman"
environments_dir: "/home/user/environments"

ui: {
  color: "auto"
  verbose: false
}
~~~`,
	}

	issues = map[Id]*Issue{
		envfileNotFoundIssue.Id():         envfileNotFoundIssue,
		envfileParseErrorIssue.Id():       envfileParseErrorIssue,
		environmentNotFoundIssue.Id():     environmentNotFoundIssue,
		inheritanceCycleIssue.Id():        inheritanceCycleIssue,
		unknownCapabilityIssue.Id():       unknownCapabilityIssue,
		containerEngineNotFoundIssue.Id(): containerEngineNotFoundIssue,
		imageBuildFailedIssue.Id():        imageBuildFailedIssue,
		missingHostEnvIssue.Id():          missingHostEnvIssue,
		requirementNotMetIssue.Id():       requirementNotMetIssue,
		configLoadFailedIssue.Id():        configLoadFailedIssue,
	}
)

func Values() []*Issue {
	return maps.Values(issues)
}

func Get(id Id) *Issue {
	return issues[id]
}
