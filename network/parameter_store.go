package network

import (
	"fmt"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/ssm"
)

// ParameterStore is the secrets collaborator. Database credentials
// and store keys live here rather than in config files.
type ParameterStore interface {
	GetParameter(name string) (string, error)
}

// SSMClient implements ParameterStore on AWS Systems Manager
// Parameter Store.
type SSMClient struct {
	svc *ssm.SSM
}

func NewSSMClient(region string) (*SSMClient, error) {
	sess, err := session.NewSession(&aws.Config{
		Region: aws.String(region),
	})
	if err != nil {
		return nil, fmt.Errorf("cannot create AWS session: %v", err)
	}
	return &SSMClient{svc: ssm.New(sess)}, nil
}

func (client *SSMClient) GetParameter(name string) (string, error) {
	resp, err := client.svc.GetParameter(&ssm.GetParameterInput{
		Name:           aws.String(name),
		WithDecryption: aws.Bool(true),
	})
	if err != nil {
		return "", fmt.Errorf("cannot read parameter '%s': %v", name, err)
	}
	return aws.StringValue(resp.Parameter.Value), nil
}
