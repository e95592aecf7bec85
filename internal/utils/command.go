package utils

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"
)

/**
 * Expand a command and its arguments as templates
 * @param {string} command - executable template
 * @param {[]string} args - argument templates, each expanded separately
 * @param {interface{}} data - template data
 * @returns {(string, []string, error)} Expanded command and arguments
 * @description
 * - A template that expands to an empty string drops the argument
 * - Unknown fields are an error
 */
func GetCommandLine(command string, args []string, data interface{}) (string, []string, error) {
	cmd, err := expand("command", command, data)
	if err != nil {
		return "", nil, err
	}

	var processedArgs []string
	for _, arg := range args {
		v, err := expand("arg", arg, data)
		if err != nil {
			return "", nil, err
		}
		if v = strings.TrimSpace(v); v != "" {
			processedArgs = append(processedArgs, v)
		}
	}
	return cmd, processedArgs, nil
}

func expand(name, text string, data interface{}) (string, error) {
	tmpl, err := template.New(name).Option("missingkey=error").Parse(text)
	if err != nil {
		return "", fmt.Errorf("failed to parse %s template '%s': %w", name, text, err)
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to execute %s template '%s': %w", name, text, err)
	}
	return buf.String(), nil
}
