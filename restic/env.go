package restic

import "github.com/napalu/restix"

// Repository locates a repository and carries what is needed to open it.
type Repository struct {
	URI          string
	Password     string
	PasswordFile string
	// Credentials hold backend secrets keyed in kebab case, for example
	// "aws-access-key-id". Env converts the keys to the SCREAMING_SNAKE
	// names the tool reads. Keys already in that form pass through
	// unchanged.
	Credentials map[string]string
}

// Env renders the repository into the environment overlay a run needs.
func Env(repo Repository) map[string]string {
	env := make(map[string]string)
	if repo.URI != "" {
		env["RESTIC_REPOSITORY"] = repo.URI
	}
	if repo.Password != "" {
		env["RESTIC_PASSWORD"] = repo.Password
	}
	if repo.PasswordFile != "" {
		env["RESTIC_PASSWORD_FILE"] = repo.PasswordFile
	}
	for k, v := range repo.Credentials {
		env[restix.DefaultEnvNameConverter(k)] = v
	}

	return env
}
