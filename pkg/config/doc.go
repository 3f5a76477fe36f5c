// Package config provides the job profile: the key-value configuration view
// every agent reader resolves its settings from.
//
// # Key Features
//
//   - JobProfile: flat dotted keys ("job.sqlserverJob.hostname") over a viper store
//   - Typed getters with defaults: Get, GetInt, GetDuration
//   - Loading from YAML, JSON or properties files
//   - Environment variable substitution with ${VAR_NAME} syntax
//   - Environment overrides: NEBULA_AGENT_JOB_SQLSERVERJOB_PASSWORD overrides
//     job.sqlserverJob.password
//
// # Usage
//
//	profile, err := config.LoadJobProfile("job.yaml")
//	if err != nil {
//		log.Fatal(err)
//	}
//	batchSize, err := profile.GetInt("job.sqlserverJob.batchSize", 1000)
//
// ## Environment Variable Substitution
//
//	# job.yaml
//	job:
//	  sqlserverJob:
//	    user: ${DB_USERNAME}
//	    password: ${DB_PASSWORD}
//
// Keys are case-insensitive, as they are in viper.
package config
